package config

import (
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

// MockConfigHook is a config.Hook for command tests. Mock functions take
// precedence; otherwise reads come from Values, which bound flags update
// the way viper resolves them.
type MockConfigHook struct {
	Values map[string]any

	GetStringMock  func(key string) string
	GetBoolMock    func(key string) bool
	BindFlagMock   func(string, *pflag.Flag) error
	GetProfileMock func() string
	GetPathMock    func() string
}

func (m *MockConfigHook) GetString(key string) string {
	if m.GetStringMock != nil {
		return m.GetStringMock(key)
	}
	return cast.ToString(m.Values[key])
}

func (m *MockConfigHook) GetBool(key string) bool {
	if m.GetBoolMock != nil {
		return m.GetBoolMock(key)
	}
	return cast.ToBool(m.Values[key])
}

func (m *MockConfigHook) GetInt(key string) int {
	return cast.ToInt(m.Values[key])
}

func (m *MockConfigHook) GetDuration(key string) time.Duration {
	return cast.ToDuration(m.Values[key])
}

func (m *MockConfigHook) GetStringSlice(key string) []string {
	return cast.ToStringSlice(m.Values[key])
}

func (m *MockConfigHook) IsSet(key string) bool {
	_, ok := m.Values[key]
	return ok
}

func (m *MockConfigHook) Set(k string, v any) {
	if m.Values == nil {
		m.Values = map[string]any{}
	}
	m.Values[k] = v
}

func (m *MockConfigHook) BindFlag(configPath string, f *pflag.Flag) error {
	if m.BindFlagMock != nil {
		return m.BindFlagMock(configPath, f)
	}
	if f != nil && (f.Changed || !m.IsSet(configPath)) {
		m.Set(configPath, f.Value.String())
	}
	return nil
}

func (m *MockConfigHook) GetProfile() string {
	if m.GetProfileMock != nil {
		return m.GetProfileMock()
	}
	return "default"
}

func (m *MockConfigHook) GetPath() string {
	if m.GetPathMock != nil {
		return m.GetPathMock()
	}
	return ""
}
