package promo

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Selection is either the All sentinel or an explicit, possibly empty, option set.
type Selection struct {
	All     bool
	Options []Option
}

func SelectAll() Selection { return Selection{All: true} }

func Select(opts ...Option) Selection { return Selection{Options: opts} }

// Any reports whether the selection restricts to at least one value or is All.
func (s Selection) Any() bool { return s.All || len(s.Options) > 0 }

// Values returns the raw option values; nil for All.
func (s Selection) Values() []string {
	if s.All {
		return nil
	}
	out := make([]string, 0, len(s.Options))
	for _, o := range s.Options {
		out = append(out, o.Value)
	}
	return out
}

func (s Selection) MarshalJSON() ([]byte, error) {
	if s.All {
		return json.Marshal(All)
	}
	if s.Options == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Options)
}

func (s *Selection) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = Selection{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		if v != All {
			return fmt.Errorf("selection: unexpected value %q", v)
		}
		*s = SelectAll()
		return nil
	}
	var opts []Option
	if err := json.Unmarshal(b, &opts); err != nil {
		return fmt.Errorf("selection: %w", err)
	}
	*s = Selection{Options: opts}
	return nil
}
