package spec

import "time"

// Labels attached to every spawned service. Merged over any labels coming
// from the config layers; on collision these win.
const (
	LabelUser    = "com.beluga.user"
	LabelServer  = "com.beluga.server"
	LabelProfile = "com.beluga.profile"
)

// ServiceSpec is the fully resolved description of a session service.
type ServiceSpec struct {
	Name            string            `mapstructure:"name"`
	Image           string            `mapstructure:"image"`
	Command         []string          `mapstructure:"command"`
	Args            []string          `mapstructure:"args"`
	Env             []string          `mapstructure:"env"`
	Workdir         string            `mapstructure:"workdir"`
	User            string            `mapstructure:"user"`
	Hostname        string            `mapstructure:"hostname"`
	Labels          map[string]string `mapstructure:"labels"`
	ContainerLabels map[string]string `mapstructure:"container_labels"`
	Resources       *Resources        `mapstructure:"resources"`
	Mounts          []Mount           `mapstructure:"mounts"`
	Networks        []string          `mapstructure:"networks"`
	RestartPolicy   *RestartPolicy    `mapstructure:"restart_policy"`
	UpdateConfig    *UpdateConfig     `mapstructure:"update_config"`
	RollbackConfig  *UpdateConfig     `mapstructure:"rollback_config"`
	Healthcheck     *Healthcheck      `mapstructure:"healthcheck"`
	DNSConfig       *DNSConfig        `mapstructure:"dns_config"`
	EndpointSpec    *EndpointSpec     `mapstructure:"endpoint_spec"`
	Secrets         []SecretReference `mapstructure:"secrets"`
	Configs         []ConfigReference `mapstructure:"configs"`
	Privileges      *Privileges       `mapstructure:"privileges"`
}

// Resources carries limits and reservations. CPU values are in nanocpus
// (fractional cores × 1e10), memory values are byte counts or human
// strings like "1g", already lower-cased by the builder.
type Resources struct {
	CPULimit       float64 `mapstructure:"cpu_limit"`
	MemLimit       string  `mapstructure:"mem_limit"`
	CPUReservation float64 `mapstructure:"cpu_reservation"`
	MemReservation string  `mapstructure:"mem_reservation"`
}

// Mount describes a single service mount. The short string form
// "source:target[:ro]" decodes into this struct.
type Mount struct {
	Type         string        `mapstructure:"type"`
	Source       string        `mapstructure:"source"`
	Target       string        `mapstructure:"target"`
	ReadOnly     bool          `mapstructure:"read_only"`
	DriverConfig *DriverConfig `mapstructure:"driver_config"`
}

// DriverConfig is the volume driver configuration of a mount.
type DriverConfig struct {
	Name    string            `mapstructure:"name"`
	Options map[string]string `mapstructure:"options"`
}

// RestartPolicy controls how the orchestrator restarts the service tasks.
type RestartPolicy struct {
	Condition   string        `mapstructure:"condition"`
	Delay       time.Duration `mapstructure:"delay"`
	MaxAttempts uint64        `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
}

// UpdateConfig is shared by the update and rollback policies.
type UpdateConfig struct {
	Parallelism     uint64        `mapstructure:"parallelism"`
	Delay           time.Duration `mapstructure:"delay"`
	FailureAction   string        `mapstructure:"failure_action"`
	Monitor         time.Duration `mapstructure:"monitor"`
	MaxFailureRatio float32       `mapstructure:"max_failure_ratio"`
	Order           string        `mapstructure:"order"`
}

// Healthcheck is the container healthcheck definition.
type Healthcheck struct {
	Test        []string      `mapstructure:"test"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	StartPeriod time.Duration `mapstructure:"start_period"`
	Retries     int           `mapstructure:"retries"`
}

// DNSConfig is the container DNS configuration.
type DNSConfig struct {
	Nameservers []string `mapstructure:"nameservers"`
	Search      []string `mapstructure:"search"`
	Options     []string `mapstructure:"options"`
}

// EndpointSpec describes how the service is published.
type EndpointSpec struct {
	Mode  string       `mapstructure:"mode"`
	Ports []PortConfig `mapstructure:"ports"`
}

// PortConfig is a single published port.
type PortConfig struct {
	Protocol      string `mapstructure:"protocol"`
	TargetPort    uint32 `mapstructure:"target_port"`
	PublishedPort uint32 `mapstructure:"published_port"`
	PublishMode   string `mapstructure:"publish_mode"`
}

// SecretReference mounts a swarm secret into the service tasks.
type SecretReference struct {
	SecretID   string `mapstructure:"secret_id"`
	SecretName string `mapstructure:"secret_name"`
	Filename   string `mapstructure:"filename"`
	UID        string `mapstructure:"uid"`
	GID        string `mapstructure:"gid"`
	Mode       uint32 `mapstructure:"mode"`
}

// ConfigReference mounts a swarm config into the service tasks.
type ConfigReference struct {
	ConfigID   string `mapstructure:"config_id"`
	ConfigName string `mapstructure:"config_name"`
	Filename   string `mapstructure:"filename"`
	UID        string `mapstructure:"uid"`
	GID        string `mapstructure:"gid"`
	Mode       uint32 `mapstructure:"mode"`
}

// Privileges is the security configuration of the service tasks.
type Privileges struct {
	CredentialSpecFile     string `mapstructure:"credentialspec_file"`
	CredentialSpecRegistry string `mapstructure:"credentialspec_registry"`
	SELinuxDisable         bool   `mapstructure:"selinux_disable"`
	SELinuxUser            string `mapstructure:"selinux_user"`
	SELinuxRole            string `mapstructure:"selinux_role"`
	SELinuxType            string `mapstructure:"selinux_type"`
	SELinuxLevel           string `mapstructure:"selinux_level"`
}

// Profile is a named, operator-curated config fragment a user can select
// at session start. Title falls back to Name in the selection form.
type Profile struct {
	Name   string                 `mapstructure:"name" json:"name"`
	Title  string                 `mapstructure:"title" json:"title,omitempty"`
	Config map[string]interface{} `mapstructure:"config" json:"config,omitempty"`
}

// DisplayTitle returns the title shown in the profile form.
func (p Profile) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}
