package lib

import "fmt"
import "sort"
import "strings"

// Settings map of configuration parameters. Keys are dotted names
// like "log.level" or "pool.chunksize", values are bool, string or
// any integer type.
type Settings map[string]interface{}

// Section return a new settings object with parameters whose key
// start with `prefix`.
func (setts Settings) Section(prefix string) Settings {
	section := make(Settings)
	for key, value := range setts {
		if strings.HasPrefix(key, prefix) {
			section[key] = value
		}
	}
	return section
}

// Trim `prefix` from all parameter keys.
func (setts Settings) Trim(prefix string) Settings {
	trimmed := make(Settings)
	for key, value := range setts {
		trimmed[strings.TrimPrefix(key, prefix)] = value
	}
	return trimmed
}

// AddPrefix to all parameter keys.
func (setts Settings) AddPrefix(prefix string) Settings {
	prefixed := make(Settings)
	for key, value := range setts {
		prefixed[prefix+key] = value
	}
	return prefixed
}

// Mixin override `setts` with parameters from each argument, in
// order. Arguments can be Settings or map[string]interface{}, rest
// are ignored.
func (setts Settings) Mixin(settings ...interface{}) Settings {
	update := func(arg map[string]interface{}) {
		for key, value := range arg {
			setts[key] = value
		}
	}
	for _, arg := range settings {
		switch cnf := arg.(type) {
		case Settings:
			update(map[string]interface{}(cnf))
		case map[string]interface{}:
			update(cnf)
		}
	}
	return setts
}

// Bool return the boolean value for key.
func (setts Settings) Bool(key string) bool {
	value, ok := setts[key]
	if !ok {
		panicerr("missing settings %q", key)
	}
	val, ok := value.(bool)
	if !ok {
		panicerr("settings %q not a bool: %T", key, value)
	}
	return val
}

// Int64 return the integer value for key, converting from any of
// golang's integer types.
func (setts Settings) Int64(key string) int64 {
	value, ok := setts[key]
	if !ok {
		panicerr("missing settings %q", key)
	}
	switch val := value.(type) {
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float64: // from json
		return int64(val)
	}
	panicerr("settings %q not a number: %T", key, value)
	return 0
}

// String return the string value for key.
func (setts Settings) String(key string) string {
	value, ok := setts[key]
	if !ok {
		panicerr("missing settings %q", key)
	}
	val, ok := value.(string)
	if !ok {
		panicerr("settings %q not a string: %T", key, value)
	}
	return val
}

// Keys return sorted list of parameter names.
func (setts Settings) Keys() []string {
	keys := make([]string, 0, len(setts))
	for key := range setts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
