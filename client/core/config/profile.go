package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/weisyn/nearnft/client/core/errs"
)

// Profile 一组命名的连接与调用配置
type Profile struct {
	Name    string        `json:"name"`
	Network NetworkConfig `json:"network"`

	// 额外的只读节点，仅用于查询类调用的故障转移
	FallbackNodeURLs []string `json:"fallback_node_urls,omitempty"`

	Timeout       Duration `json:"timeout"`
	RetryAttempts int      `json:"retry_attempts"`
	RetryBackoff  Duration `json:"retry_backoff"`

	// 在内置 NFT 方法之外追加声明的方法
	ChangeMethods []string `json:"change_methods,omitempty"`
	ViewMethods   []string `json:"view_methods,omitempty"`

	KeystoreDir    string `json:"keystore_dir,omitempty"`
	CredentialsDir string `json:"credentials_dir,omitempty"`
}

// Duration 支持 "30s" 形式 JSON 编码的时长
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return fmt.Errorf("duration must be a string like \"30s\": %w", err)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Std 返回 time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultProfile 返回某网络的默认配置
func DefaultProfile(network string) (*Profile, error) {
	netCfg, err := ForNetwork(network)
	if err != nil {
		return nil, err
	}
	p := &Profile{Name: netCfg.NetworkID, Network: netCfg}
	p.applyDefaults()
	return p, nil
}

func (p *Profile) applyDefaults() {
	if p.Timeout == 0 {
		p.Timeout = Duration(30 * time.Second)
	}
	if p.RetryAttempts == 0 {
		p.RetryAttempts = 3
	}
	if p.RetryBackoff == 0 {
		p.RetryBackoff = Duration(time.Second)
	}
	if p.Network.NetworkID != "" {
		if preset, err := ForNetwork(p.Network.NetworkID); err == nil {
			if p.Network.NodeURL == "" {
				p.Network.NodeURL = preset.NodeURL
			}
			if p.Network.WalletURL == "" {
				p.Network.WalletURL = preset.WalletURL
			}
			if p.Network.ContractName == "" {
				p.Network.ContractName = preset.ContractName
			}
		}
	}
}

// Validate 校验配置
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errs.New(errs.KindConfig, "profile", "profile name is required")
	}
	if err := p.Network.Validate(); err != nil {
		return err
	}
	for _, u := range p.FallbackNodeURLs {
		if err := validateURL("fallback_node_urls", u); err != nil {
			return err
		}
	}
	if p.Timeout < 0 || p.RetryBackoff < 0 || p.RetryAttempts < 0 {
		return errs.New(errs.KindConfig, "profile", "timeouts and retry settings must not be negative")
	}
	return nil
}

// LoadProfile 读取单个配置文件，缺省字段按网络预置补齐
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "load_profile", fmt.Errorf("read profile: %w", err))
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "load_profile", fmt.Errorf("parse profile %s: %w", path, err))
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileManager 管理 <configDir>/profiles/*.json
type ProfileManager struct {
	configDir string
}

// DefaultConfigDir 返回 ~/.nearnft
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".nearnft"), nil
}

// NewProfileManager 创建配置管理器，目录不存在时不创建
func NewProfileManager(configDir string) (*ProfileManager, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	return &ProfileManager{configDir: configDir}, nil
}

func (pm *ProfileManager) profilePath(name string) string {
	return filepath.Join(pm.configDir, "profiles", name+".json")
}

// GetProfile 读取配置；文件不存在且名称是预置网络时返回预置配置
func (pm *ProfileManager) GetProfile(name string) (*Profile, error) {
	if strings.ContainsAny(name, `/\`) {
		return nil, errs.New(errs.KindConfig, "get_profile", "invalid profile name %q", name)
	}
	path := pm.profilePath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if p, presetErr := DefaultProfile(name); presetErr == nil {
			return p, nil
		}
		return nil, errs.New(errs.KindConfig, "get_profile", "profile not found: %s", name)
	}
	return LoadProfile(path)
}

// ListProfiles 列出已保存的配置名
func (pm *ProfileManager) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(pm.configDir, "profiles"))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// SaveProfile 保存配置
func (pm *ProfileManager) SaveProfile(profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if strings.ContainsAny(profile.Name, `/\`) {
		return errs.New(errs.KindConfig, "save_profile", "invalid profile name %q", profile.Name)
	}
	if err := os.MkdirAll(filepath.Join(pm.configDir, "profiles"), 0700); err != nil {
		return fmt.Errorf("create profiles dir: %w", err)
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := os.WriteFile(pm.profilePath(profile.Name), data, 0600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// DeleteProfile 删除配置
func (pm *ProfileManager) DeleteProfile(name string) error {
	if err := os.Remove(pm.profilePath(name)); err != nil {
		if os.IsNotExist(err) {
			return errs.New(errs.KindConfig, "delete_profile", "profile not found: %s", name)
		}
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
