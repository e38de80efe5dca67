// Package viperparser adapts github.com/spf13/viper to the confschema.Parser
// contract, reading YAML configuration; internal/config uses it to load
// the [global] section.
package viperparser

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/netlogd/netlogd/internal/confschema"
)

// Parser reads confschema.Schema values out of a viper instance backed by
// a single YAML file with one top-level key per section.
type Parser struct {
	v    *viper.Viper
	path string
}

// New creates a Parser around a fresh viper instance.
func New() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// RegisterFile opens and parses the given YAML file. A path of "" is
// treated as "no file, defaults only" and always succeeds.
func (p *Parser) RegisterFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return &confschema.ParseError{Status: confschema.StatusFileNotOpenable, Section: "", Key: path}
	}
	p.v.SetConfigFile(path)
	if err := p.v.ReadInConfig(); err != nil {
		return &confschema.ParseError{Status: confschema.StatusFileNotOpenable, Section: "", Key: path}
	}
	p.path = path
	return nil
}

// Parse fills schema from the named top-level section.
func (p *Parser) Parse(section string, schema *confschema.Schema) error {
	if p.path != "" && !p.v.IsSet(section) {
		return &confschema.ParseError{Status: confschema.StatusSectionMissing, Section: section}
	}

	sub := p.v.Sub(section)

	known := make(map[string]struct{}, len(schema.Entries))
	for _, e := range schema.Entries {
		known[e.Key] = struct{}{}
	}

	if sub != nil {
		for _, k := range sub.AllKeys() {
			if _, ok := known[k]; !ok {
				return &confschema.ParseError{Status: confschema.StatusUnknownKey, Section: section, Key: k}
			}
		}
	}

	for _, e := range schema.Entries {
		if err := p.parseEntry(section, sub, e); err != nil {
			return err
		}
	}

	for _, e := range schema.Entries {
		if e.Options&confschema.OptMandatory != 0 && e.seen == 0 {
			return &confschema.ParseError{Status: confschema.StatusMandatoryMissing, Section: section, Key: e.Key}
		}
	}

	return nil
}

func (p *Parser) parseEntry(section string, sub *viper.Viper, e *confschema.Entry) error {
	switch e.Type {
	case confschema.TypeInt:
		e.IntValue = e.IntDefault
		if sub != nil && sub.IsSet(e.Key) {
			if e.Options&confschema.OptMulti == 0 && e.seen > 0 {
				return &confschema.ParseError{Status: confschema.StatusDuplicateNotAllowed, Section: section, Key: e.Key}
			}
			e.IntValue = sub.GetInt(e.Key)
			e.seen++
		}
	case confschema.TypeString:
		e.StringValue = e.StringDefault
		if sub != nil && sub.IsSet(e.Key) {
			if e.Options&confschema.OptMulti == 0 && e.seen > 0 {
				return &confschema.ParseError{Status: confschema.StatusDuplicateNotAllowed, Section: section, Key: e.Key}
			}
			e.StringValue = sub.GetString(e.Key)
			e.seen++
		}
	case confschema.TypeCallback:
		if sub == nil || !sub.IsSet(e.Key) {
			return nil
		}
		values, err := callbackValues(sub, e.Key)
		if err != nil {
			return err
		}
		if len(values) > 1 && e.Options&confschema.OptMulti == 0 {
			return &confschema.ParseError{Status: confschema.StatusDuplicateNotAllowed, Section: section, Key: e.Key}
		}
		for _, v := range values {
			if e.Callback != nil {
				if err := e.Callback(v); err != nil {
					return fmt.Errorf("config callback for %q: %w", e.Key, err)
				}
			}
			e.seen++
		}
	default:
		return errors.New("confschema: unknown entry type")
	}
	return nil
}

// callbackValues normalizes a callback entry's raw value: either a single
// string or a YAML sequence of strings, matching the multi-valued
// "plugin=" / "stack=" directives of the original config file format.
func callbackValues(sub *viper.Viper, key string) ([]string, error) {
	raw := sub.Get(key)
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("config key %q: expected string list entry, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return v, nil
	default:
		return nil, fmt.Errorf("config key %q: unsupported value type %T", key, raw)
	}
}
