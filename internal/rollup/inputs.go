package rollup

import (
	"encoding/json"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/domain"
)

// Inputs is a flat set of named input amounts. A field that is absent reads as zero;
// absent and zero are deliberately indistinguishable.
type Inputs map[string]decimal.Decimal

// Get returns the named input, or zero when absent.
func (in Inputs) Get(name string) decimal.Decimal {
	return in[name]
}

// With returns a copy of in with name set to v.
func (in Inputs) With(name string, v decimal.Decimal) Inputs {
	out := make(Inputs, len(in)+1)
	for k, d := range in {
		out[k] = d
	}
	out[name] = v
	return out
}

// Only returns a copy restricted to the given fields, dropping unknown keys.
func (in Inputs) Only(fields []string) Inputs {
	return lo.PickByKeys(in, fields)
}

// ParseInputs converts raw form values into Inputs. Non-numeric, NaN and blank
// values become zero (absent-as-zero).
func ParseInputs(raw map[string]string) Inputs {
	return lo.MapValues(raw, func(v string, _ string) decimal.Decimal {
		return domain.SafeParse(v)
	})
}

// UnmarshalJSON accepts numbers or numeric strings per field. Values that do
// not parse (null, "", "NaN", objects) read as zero instead of failing the decode.
func (in *Inputs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Inputs, len(raw))
	for k, v := range raw {
		var d decimal.Decimal
		if err := d.UnmarshalJSON(v); err != nil {
			d = decimal.Zero
		}
		out[k] = d
	}
	*in = out
	return nil
}
