package domain

import (
	"time"

	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/btsguard/internal/validation"
)

// FieldSpec declares one configuration field: its type, default and the rules its
// parsed value must satisfy.
type FieldSpec struct {
	Section     string
	Key         string
	Type        ValueType
	Default     string
	Description string
	Rules       []validation.Rule
}

// Name returns "section.key".
func (f FieldSpec) Name() string {
	return FieldName(f.Section, f.Key)
}

// Parse converts and validates the input.
func (f FieldSpec) Parse(input string) (Value, error) {
	value, err := ParseValue(f.Type, input)
	if err != nil {
		return Value{}, &ValidationError{Field: f.Name(), Reason: err.Error()}
	}
	if err := validation.Validate(value.Native(), f.Rules...); err != nil {
		return Value{}, &ValidationError{Field: f.Name(), Reason: err.Error()}
	}
	return value, nil
}

// Schema is the ordered table of known fields.
type Schema []FieldSpec

// Lookup returns the field declared as section.key.
func (s Schema) Lookup(section, key string) (FieldSpec, bool) {
	for _, spec := range s {
		if spec.Section == section && spec.Key == key {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Defaults builds the content of a fresh installation.
func (s Schema) Defaults() (Content, error) {
	content := Content{}
	for _, spec := range s {
		value, err := spec.Parse(spec.Default)
		if err != nil {
			return nil, err
		}
		content.Set(spec.Section, spec.Key, value)
	}
	return content, nil
}

// Check validates every field of the content and rejects unknown ones.
func (s Schema) Check(content Content) error {
	for _, section := range content {
		for _, field := range section.Fields {
			spec, ok := s.Lookup(section.Name, field.Key)
			if !ok {
				return &ValidationError{Field: FieldName(section.Name, field.Key), Reason: "unknown field"}
			}
			if field.Value.Type != spec.Type {
				return &ValidationError{Field: spec.Name(), Reason: "expected " + string(spec.Type)}
			}
			if _, err := spec.Parse(field.Value.Raw); err != nil {
				return err
			}
		}
	}
	return nil
}

var gsmBands = []any{"GSM850", "EGSM900", "GSM900", "DCS1800", "PCS1900"}

// DefaultSchema is the field table of the managed yate.conf.
func DefaultSchema() Schema {
	return Schema{
		{Section: "core", Key: "http.enabled", Type: TypeBool, Default: "yes",
			Description: "Enable the management HTTP listener"},
		{Section: "core", Key: "http.port", Type: TypeInt, Default: "5038",
			Description: "Management HTTP port",
			Rules:       []validation.Rule{validation.Required, validation.Min(int64(1)), validation.Max(int64(65535))}},
		{Section: "core", Key: "http.allowed", Type: TypeString, Default: "127.0.0.1,192.168.0.0/16",
			Description: "Addresses allowed to reach the HTTP listener",
			Rules:       []validation.Rule{validation.Required, appValidation.AddressList}},

		{Section: "GSM", Key: "Radio.Band", Type: TypeString, Default: "GSM900",
			Rules: []validation.Rule{validation.Required, validation.In(gsmBands...)}},
		{Section: "GSM", Key: "Radio.C0", Type: TypeInt, Default: "62",
			Description: "ARFCN of the beacon channel",
			Rules:       []validation.Rule{validation.Min(int64(0)), validation.Max(int64(1023))}},
		{Section: "GSM", Key: "Radio.MaxTxPower", Type: TypeInt, Default: "20",
			Description: "Maximum transmit power in dBm",
			Rules:       []validation.Rule{validation.Min(int64(0)), validation.Max(int64(43))}},
		{Section: "GSM", Key: "Radio.CountryCode", Type: TypeString, Default: "645",
			Description: "Mobile country code",
			Rules:       []validation.Rule{validation.Required, appValidation.Digits(3, 3)}},
		{Section: "GSM", Key: "Radio.NetworkCode", Type: TypeString, Default: "01",
			Description: "Mobile network code",
			Rules:       []validation.Rule{validation.Required, appValidation.Digits(2, 3)}},
		{Section: "GSM", Key: "Radio.LAC", Type: TypeInt, Default: "4101",
			Description: "Location area code",
			Rules:       []validation.Rule{validation.Required, validation.Min(int64(1)), validation.Max(int64(65533))}},
		{Section: "GSM", Key: "Radio.CellID", Type: TypeInt, Default: "101",
			Rules: []validation.Rule{validation.Min(int64(0)), validation.Max(int64(65535))}},
		{Section: "GSM", Key: "Radio.Encryption.A5.1", Type: TypeBool, Default: "no"},
		{Section: "GSM", Key: "Radio.Encryption.A5.3", Type: TypeBool, Default: "yes"},

		{Section: "radio", Key: "band", Type: TypeString, Default: "GSM900",
			Rules: []validation.Rule{validation.Required, validation.In(gsmBands...)}},
		{Section: "radio", Key: "arfcn", Type: TypeInt, Default: "62",
			Rules: []validation.Rule{validation.Min(int64(0)), validation.Max(int64(1023))}},
		{Section: "radio", Key: "power_dbm", Type: TypeInt, Default: "20",
			Description: "Transmit power in dBm",
			Rules:       []validation.Rule{validation.Min(int64(0)), validation.Max(int64(43))}},

		{Section: "Security", Key: "TLS.Enabled", Type: TypeBool, Default: "yes"},
		{Section: "Security", Key: "TLS.Certificate", Type: TypeString, Default: "/etc/yate/certs/public_cert.pem",
			Rules: []validation.Rule{validation.Required, appValidation.AbsolutePath}},
		{Section: "Security", Key: "TLS.Key", Type: TypeString, Default: "/etc/yate/certs/private_key.pem",
			Rules: []validation.Rule{validation.Required, appValidation.AbsolutePath}},
		{Section: "Security", Key: "AccessControl", Type: TypeString, Default: "admin,root",
			Description: "Operators allowed on the service console",
			Rules:       []validation.Rule{validation.Required, appValidation.NoWhitespace}},
		{Section: "Security", Key: "AuditLog", Type: TypeString, Default: "/var/log/yate/audit.log",
			Rules: []validation.Rule{validation.Required, appValidation.AbsolutePath}},
		{Section: "Security", Key: "FailedLoginAttempts", Type: TypeInt, Default: "3",
			Rules: []validation.Rule{validation.Required, validation.Min(int64(1)), validation.Max(int64(20))}},
		{Section: "Security", Key: "LoginBanTime", Type: TypeDuration, Default: "300",
			Rules: []validation.Rule{validation.Min(time.Duration(0)), validation.Max(24 * time.Hour)}},

		{Section: "Monitoring", Key: "SystemStats.Interval", Type: TypeDuration, Default: "60",
			Rules: []validation.Rule{validation.Required, validation.Min(time.Second), validation.Max(time.Hour)}},
		{Section: "Monitoring", Key: "CallDataRecords", Type: TypeBool, Default: "yes"},
		{Section: "Monitoring", Key: "SMS.Logs", Type: TypeBool, Default: "yes"},

		{Section: "Interfaces", Key: "GSM.Interface", Type: TypeString, Default: "eth0",
			Rules: []validation.Rule{validation.Required, appValidation.InterfaceName}},
		{Section: "Interfaces", Key: "SIP.Interface", Type: TypeString, Default: "eth0",
			Rules: []validation.Rule{validation.Required, appValidation.InterfaceName}},
	}
}
