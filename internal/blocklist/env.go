package blocklist

import (
	"encoding"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable that overrides configuration.
const EnvPrefix = "LISTCTL_"

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set are not overwritten.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(err, "env file "+path)
	}
	return nil
}

// ApplyEnvironmentVariables overrides configuration values with
// LISTCTL_* environment variables.
//
// The variable name is the upper-cased toml key path joined by '_',
// e.g. LISTCTL_MAX_CONNS or LISTCTL_TLS_MIN_VERSION. Unset or empty
// variables leave the value unchanged.
func (c *Config) ApplyEnvironmentVariables() error {
	return applyEnv(reflect.ValueOf(c).Elem(), EnvPrefix)
}

func applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := strings.Split(sf.Tag.Get("toml"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		name := prefix + strings.ToUpper(tag)
		field := v.Field(i)

		if field.Kind() == reflect.Struct && !reflect.PointerTo(field.Type()).Implements(textUnmarshalerType) {
			if err := applyEnv(field, name+"_"); err != nil {
				return err
			}
			continue
		}
		if err := setFieldFromEnv(field, name); err != nil {
			return err
		}
	}
	return nil
}

// setFieldFromEnv sets field from the environment variable envVar if it is not empty.
func setFieldFromEnv(field reflect.Value, envVar string) error {
	value := os.Getenv(envVar)
	if value == "" {
		return nil
	}

	if field.CanAddr() && field.Addr().Type().Implements(textUnmarshalerType) {
		u := field.Addr().Interface().(encoding.TextUnmarshaler)
		if err := u.UnmarshalText([]byte(value)); err != nil {
			return errors.Wrap(err, envVar)
		}
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrap(err, envVar)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrap(err, envVar)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.Newf("%s: unsupported slice type %s", envVar, field.Type())
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return errors.Newf("%s: unsupported field type %s", envVar, field.Type())
	}
	return nil
}
