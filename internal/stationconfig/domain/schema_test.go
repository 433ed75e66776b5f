package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema_Defaults(t *testing.T) {
	schema := DefaultSchema()

	content, err := schema.Defaults()
	require.NoError(t, err)
	require.NoError(t, schema.Check(content))

	power, ok := content.Get("radio", "power_dbm")
	require.True(t, ok)
	assert.Equal(t, Value{Type: TypeInt, Raw: "20"}, power)

	ban, ok := content.Get("Security", "LoginBanTime")
	require.True(t, ok)
	assert.Equal(t, "300", ban.INI())

	assert.Equal(t, "core", content[0].Name)
}

func TestDefaultSchema_UniqueFields(t *testing.T) {
	seen := map[string]bool{}
	for _, spec := range DefaultSchema() {
		assert.False(t, seen[spec.Name()], "duplicate field %s", spec.Name())
		seen[spec.Name()] = true
	}
}

func TestFieldSpec_Parse(t *testing.T) {
	schema := DefaultSchema()

	tests := []struct {
		name    string
		section string
		key     string
		input   string
		want    string
		wantErr bool
	}{
		{name: "power in range", section: "radio", key: "power_dbm", input: "33", want: "33"},
		{name: "power too high", section: "radio", key: "power_dbm", input: "60", wantErr: true},
		{name: "power not a number", section: "radio", key: "power_dbm", input: "high", wantErr: true},
		{name: "band known", section: "radio", key: "band", input: "DCS1800", want: "DCS1800"},
		{name: "band unknown", section: "radio", key: "band", input: "LTE", wantErr: true},
		{name: "mcc digits", section: "GSM", key: "Radio.CountryCode", input: "001", want: "001"},
		{name: "mcc letters", section: "GSM", key: "Radio.CountryCode", input: "abc", wantErr: true},
		{name: "lac zero", section: "GSM", key: "Radio.LAC", input: "0", wantErr: true},
		{name: "allowed list", section: "core", key: "http.allowed", input: "10.0.0.1,10.1.0.0/16",
			want: "10.0.0.1,10.1.0.0/16"},
		{name: "allowed garbage", section: "core", key: "http.allowed", input: "10.0.0.1,nope", wantErr: true},
		{name: "interface", section: "Interfaces", key: "GSM.Interface", input: "wlan0", want: "wlan0"},
		{name: "interface with space", section: "Interfaces", key: "GSM.Interface", input: "eth 0",
			wantErr: true},
		{name: "relative path", section: "Security", key: "TLS.Key", input: "certs/key.pem", wantErr: true},
		{name: "access list with injected section", section: "Security", key: "AccessControl",
			input: "admin,root\n[GSM]\nRadio.MaxTxPower=99", wantErr: true},
		{name: "path with injected section", section: "Security", key: "TLS.Key",
			input: "/etc/yate/key.pem\n[core]\nhttp.enabled=no", wantErr: true},
		{name: "stats interval overflow", section: "Monitoring", key: "SystemStats.Interval",
			input: "18446744075", wantErr: true},
		{name: "stats interval", section: "Monitoring", key: "SystemStats.Interval", input: "2m", want: "2m0s"},
		{name: "stats interval too long", section: "Monitoring", key: "SystemStats.Interval", input: "2h",
			wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok := schema.Lookup(tt.section, tt.key)
			require.True(t, ok)

			value, err := spec.Parse(tt.input)
			if tt.wantErr {
				var validationErr *ValidationError
				require.True(t, errors.As(err, &validationErr))
				assert.Equal(t, FieldName(tt.section, tt.key), validationErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, value.Raw)
		})
	}
}

func TestSchema_Check(t *testing.T) {
	schema := DefaultSchema()

	t.Run("Error_UnknownField", func(t *testing.T) {
		content, err := schema.Defaults()
		require.NoError(t, err)
		content.Set("radio", "gain", Value{Type: TypeInt, Raw: "3"})

		var validationErr *ValidationError
		require.True(t, errors.As(schema.Check(content), &validationErr))
		assert.Equal(t, "radio.gain", validationErr.Field)
		assert.Equal(t, "unknown field", validationErr.Reason)
	})

	t.Run("Error_ControlCharacters", func(t *testing.T) {
		content, err := schema.Defaults()
		require.NoError(t, err)
		content.Set("Security", "AccessControl", Value{Type: TypeString, Raw: "admin\n[GSM]\nRadio.MaxTxPower=99"})

		var validationErr *ValidationError
		require.True(t, errors.As(schema.Check(content), &validationErr))
		assert.Equal(t, "Security.AccessControl", validationErr.Field)
	})

	t.Run("Error_WrongType", func(t *testing.T) {
		content, err := schema.Defaults()
		require.NoError(t, err)
		content.Set("radio", "power_dbm", Value{Type: TypeString, Raw: "20"})

		assert.Error(t, schema.Check(content))
	})
}
