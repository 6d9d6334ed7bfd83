package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
)

// HTTP client functions

type sessionInfo struct {
	Name       string `json:"name"`
	User       string `json:"user"`
	ServerName string `json:"server_name,omitempty"`
	Profile    string `json:"profile,omitempty"`
	Address    string `json:"address,omitempty"`
	Port       int    `json:"port,omitempty"`
	Token      string `json:"token,omitempty"`
	ServiceID  string `json:"service_id,omitempty"`
}

type profileInfo struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

type spawnRequest struct {
	User         string            `json:"user"`
	ServerName   string            `json:"server_name,omitempty"`
	Profile      string            `json:"profile,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	CPULimit     float64           `json:"cpu_limit,omitempty"`
	CPUGuarantee float64           `json:"cpu_guarantee,omitempty"`
	MemLimit     string            `json:"mem_limit,omitempty"`
	MemGuarantee string            `json:"mem_guarantee,omitempty"`
}

func spawnSession(req spawnRequest) (*sessionInfo, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(serverURL+"/sessions", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var session sessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}

	return &session, nil
}

func listSessions() ([]*sessionInfo, error) {
	resp, err := http.Get(serverURL + "/sessions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var sessions []*sessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

func getSession(name string) (*sessionInfo, error) {
	resp, err := http.Get(serverURL + "/sessions/" + name)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var session sessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}

	return &session, nil
}

func sessionHealth(name string) (string, error) {
	resp, err := http.Get(serverURL + "/sessions/" + name + "/health")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result["health"], nil
}

func stopSession(name string) error {
	req, err := http.NewRequest("DELETE", serverURL+"/sessions/"+name, nil)
	if err != nil {
		return err
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func listProfiles() ([]*profileInfo, error) {
	resp, err := http.Get(serverURL + "/profiles")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var profiles []*profileInfo
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		return nil, err
	}

	return profiles, nil
}

func getStats() (map[string]interface{}, error) {
	resp, err := http.Get(serverURL + "/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}

	return stats, nil
}
