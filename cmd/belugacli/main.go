package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const (
	defaultServerURL = "http://localhost:8080"
	belugaBanner     = `
██████╗ ███████╗██╗     ██╗   ██╗ ██████╗  █████╗
██╔══██╗██╔════╝██║     ██║   ██║██╔════╝ ██╔══██╗
██████╔╝█████╗  ██║     ██║   ██║██║  ███╗███████║
██╔══██╗██╔══╝  ██║     ██║   ██║██║   ██║██╔══██║
██████╔╝███████╗███████╗╚██████╔╝╚██████╔╝██║  ██║
╚═════╝ ╚══════╝╚══════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝

Swarm Session Spawner CLI v1.0.0
`
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "beluga",
		Short: "🐳 BELUGA Swarm Session Spawner CLI",
		Long: belugaBanner + `
BELUGA, kullanıcı oturumlarını Docker Swarm servisleri olarak yöneten
bir session spawner'dır. Her oturum deterministik isimli tek bir
servise karşılık gelir.

Kullanım örnekleri:
  beluga spawn alice --profile gpu      # alice için oturum başlat
  beluga sessions                       # Tüm oturumları listele
  beluga health beluga-alice            # Oturum sağlığını sorgula
  beluga stop beluga-alice              # Oturumu durdur

Daha fazla bilgi için: beluga [komut] --help`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Banner'ı sadece help ve version dışındaki komutlarda göster
			if cmd.Name() != "help" && cmd.Name() != "version" && !cmd.HasParent() {
				fmt.Print(belugaBanner)
			}
		},
	}
)

var (
	spawnServerName   string
	spawnProfile      string
	spawnEnv          []string
	spawnCPULimit     float64
	spawnCPUGuarantee float64
	spawnMemLimit     string
	spawnMemGuarantee string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "BELUGA sunucu URL'si")

	spawnCmd.Flags().StringVar(&spawnServerName, "name", "", "İsimli oturum (servis adına eklenir)")
	spawnCmd.Flags().StringVar(&spawnProfile, "profile", "", "Kullanılacak config profili")
	spawnCmd.Flags().StringSliceVar(&spawnEnv, "env", nil, "Ek environment değişkenleri (KEY=VALUE)")
	spawnCmd.Flags().Float64Var(&spawnCPULimit, "cpu-limit", 0, "CPU limiti (çekirdek)")
	spawnCmd.Flags().Float64Var(&spawnCPUGuarantee, "cpu-guarantee", 0, "CPU rezervasyonu (çekirdek)")
	spawnCmd.Flags().StringVar(&spawnMemLimit, "mem-limit", "", "Bellek limiti (örn. 1G)")
	spawnCmd.Flags().StringVar(&spawnMemGuarantee, "mem-guarantee", "", "Bellek rezervasyonu (örn. 512M)")

	// Session commands
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(listSessionsCmd)
	rootCmd.AddCommand(inspectSessionCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(stopCmd)

	// Utility commands
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("❌ Hata: %v\n", err)
		os.Exit(1)
	}
}

// Session commands
var spawnCmd = &cobra.Command{
	Use:   "spawn [user]",
	Short: "🚀 Kullanıcı oturumu başlat",
	Long: `Belirtilen kullanıcı için bir oturum servisi başlatır. Aynı isimli
bir servis zaten çalışıyorsa yenisi oluşturulmaz, mevcut servis
devralınır.

Örnek kullanım:
  beluga spawn alice
  beluga spawn alice --profile gpu --mem-limit 2G`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req := spawnRequest{
			User:         args[0],
			ServerName:   spawnServerName,
			Profile:      spawnProfile,
			CPULimit:     spawnCPULimit,
			CPUGuarantee: spawnCPUGuarantee,
			MemLimit:     spawnMemLimit,
			MemGuarantee: spawnMemGuarantee,
		}

		if len(spawnEnv) > 0 {
			req.Env = make(map[string]string, len(spawnEnv))
			for _, entry := range spawnEnv {
				parts := strings.SplitN(entry, "=", 2)
				if len(parts) != 2 {
					fmt.Printf("❌ Geçersiz env tanımı: %s\n", entry)
					os.Exit(1)
				}
				req.Env[parts[0]] = parts[1]
			}
		}

		fmt.Printf("🚀 Oturum başlatılıyor: %s\n", req.User)
		session, err := spawnSession(req)
		if err != nil {
			fmt.Printf("❌ Oturum başlatılamadı: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✅ Oturum başarıyla başlatıldı!\n")
		fmt.Printf("   🏷️  İsim: %s\n", session.Name)
		fmt.Printf("   🌐 Adres: %s:%d\n", session.Address, session.Port)
		if session.Profile != "" {
			fmt.Printf("   📦 Profil: %s\n", session.Profile)
		}
		fmt.Printf("   🔑 Token: %s\n", session.Token)
	},
}

var listSessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ps", "list"},
	Short:   "📋 Oturumları listele",
	Long: `Spawner'ın bildiği tüm oturumları listeler.

Örnek kullanım:
  beluga sessions
  beluga ps`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("🔍 Oturumlar getiriliyor...")
		sessions, err := listSessions()
		if err != nil {
			fmt.Printf("❌ Oturum listesi alınamadı: %v\n", err)
			os.Exit(1)
		}

		if len(sessions) == 0 {
			fmt.Println("📭 Hiç oturum bulunamadı.")
			return
		}

		fmt.Printf("\n📦 Toplam %d oturum bulundu:\n\n", len(sessions))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "İSİM\tKULLANICI\tPROFİL\tSERVICE ID\tADRES")
		fmt.Fprintln(w, strings.Repeat("─", 80))

		for _, session := range sessions {
			profile := session.Profile
			if profile == "" {
				profile = "-"
			}
			serviceID := session.ServiceID
			if serviceID == "" {
				serviceID = "-"
			} else if len(serviceID) > 12 {
				serviceID = serviceID[:12]
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s:%d\n",
				session.Name, session.User, profile, serviceID, session.Address, session.Port)
		}
		w.Flush()
	},
}

var inspectSessionCmd = &cobra.Command{
	Use:   "inspect [session-name]",
	Short: "🔎 Oturum detaylarını göster",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		session, err := getSession(args[0])
		if err != nil {
			fmt.Printf("❌ Oturum bulunamadı: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("🏷️  İsim: %s\n", session.Name)
		fmt.Printf("👤 Kullanıcı: %s\n", session.User)
		if session.ServerName != "" {
			fmt.Printf("📛 Oturum adı: %s\n", session.ServerName)
		}
		if session.Profile != "" {
			fmt.Printf("📦 Profil: %s\n", session.Profile)
		}
		fmt.Printf("🌐 Adres: %s:%d\n", session.Address, session.Port)
		fmt.Printf("📋 Service ID: %s\n", session.ServiceID)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health [session-name]",
	Short: "💚 Oturum sağlığını sorgula",
	Long: `Oturum servisinin task durumunu sorgular. Reddedilmiş bir task
bulunursa servis otomatik olarak kaldırılır (self-heal).

Örnek kullanım:
  beluga health beluga-alice`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		health, err := sessionHealth(args[0])
		if err != nil {
			fmt.Printf("❌ Oturum durumu alınamadı: %v\n", err)
			os.Exit(1)
		}

		switch health {
		case "healthy":
			fmt.Printf("🟢 %s: %s\n", args[0], health)
		default:
			fmt.Printf("🔴 %s: %s\n", args[0], health)
		}
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [session-name]",
	Short: "🛑 Oturumu durdur",
	Long: `Oturum servisini durdurur ve kaldırır. Kaldırma best-effort'tur,
servis zaten yoksa da oturum kaydı temizlenir.

Örnek kullanım:
  beluga stop beluga-alice`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]

		fmt.Printf("🛑 Oturum durduruluyor: %s\n", name)
		if err := stopSession(name); err != nil {
			fmt.Printf("❌ Oturum durdurulamadı: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✅ Oturum durduruldu: %s\n", name)
	},
}

// Utility commands
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "📦 Config profillerini listele",
	Run: func(cmd *cobra.Command, args []string) {
		profiles, err := listProfiles()
		if err != nil {
			fmt.Printf("❌ Profil listesi alınamadı: %v\n", err)
			os.Exit(1)
		}

		if len(profiles) == 0 {
			fmt.Println("📭 Hiç profil tanımlanmamış.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "İSİM\tBAŞLIK")
		for _, profile := range profiles {
			title := profile.Title
			if title == "" {
				title = profile.Name
			}
			fmt.Fprintf(w, "%s\t%s\n", profile.Name, title)
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "📊 Sistem istatistiklerini göster",
	Run: func(cmd *cobra.Command, args []string) {
		stats, err := getStats()
		if err != nil {
			fmt.Printf("❌ İstatistikler alınamadı: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("📊 Spawner istatistikleri:")
		fmt.Printf("   🟢 Aktif oturum: %v\n", stats["active_sessions"])
		fmt.Printf("   💾 Kayıtlı oturum: %v\n", stats["stored_sessions"])
		fmt.Printf("   📦 Profil: %v\n", stats["profiles"])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "ℹ️  Versiyon bilgisini göster",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("BELUGA Swarm Session Spawner v1.0.0")
	},
}
