package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sartor/db/dberr"
	"github.com/sartor/db/nodes"
)

// Layouts used to render and parse date/time columns.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	DateTimeLayout,
	DateLayout,
	"15:04:05.999999999",
	TimeLayout,
}

// DBTypecast converts v into the form sent to the database for this
// column. Nodes pass through untouched. nil stays nil and "" becomes nil
// except for string and binary columns.
func (c *Column) DBTypecast(v any) (any, error) {
	if _, ok := v.(nodes.Node); ok {
		return v, nil
	}
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && s == "" {
		switch c.AppType {
		case AppString:
			return "", nil
		case AppBytes:
			return []byte{}, nil
		}
		return nil, nil
	}
	switch c.AppType {
	case AppInt:
		return c.toInt(v)
	case AppFloat:
		return c.toFloat(v)
	case AppBool:
		return toBool(v), nil
	case AppString:
		return toString(v), nil
	case AppBytes:
		return toBytes(v), nil
	case AppJSON:
		switch x := v.(type) {
		case json.RawMessage:
			return string(x), nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, c.castError("json", v, err)
		}
		return string(raw), nil
	case AppUUID:
		id, err := toUUID(v)
		if err != nil {
			return nil, c.castError("uuid", v, err)
		}
		return id.String(), nil
	case AppTime:
		switch x := v.(type) {
		case time.Time:
			return x.Format(c.timeLayout()), nil
		case int64:
			return time.Unix(x, 0).UTC().Format(c.timeLayout()), nil
		case int:
			return time.Unix(int64(x), 0).UTC().Format(c.timeLayout()), nil
		}
		return v, nil
	}
	return v, nil
}

// AppTypecast converts a value read from the database into its
// application representation.
func (c *Column) AppTypecast(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok && c.AppType != AppBytes && c.AppType != AppUUID {
		v = string(b)
	}
	if s, ok := v.(string); ok && s == "" && c.AppType != AppString && c.AppType != AppBytes {
		return nil, nil
	}
	switch c.AppType {
	case AppInt:
		return c.toInt(v)
	case AppFloat:
		return c.toFloat(v)
	case AppBool:
		return toBool(v), nil
	case AppString:
		return toString(v), nil
	case AppBytes:
		return toBytes(v), nil
	case AppJSON:
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, c.castError("json", v, err)
		}
		return out, nil
	case AppUUID:
		id, err := toUUID(v)
		if err != nil {
			return nil, c.castError("uuid", v, err)
		}
		return id, nil
	case AppTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, x); err == nil {
					return t, nil
				}
			}
			return nil, c.castError("time", v, nil)
		}
	}
	return v, nil
}

func (c *Column) castError(kind string, v any, err error) error {
	if err != nil {
		return dberr.InvalidArgument("typecast", "column %q: cannot convert %v to %s: %v", c.Name, v, kind, err)
	}
	return dberr.InvalidArgument("typecast", "column %q: cannot convert %v to %s", c.Name, v, kind)
}

func (c *Column) timeLayout() string {
	switch c.Type {
	case TypeDate:
		return DateLayout
	case TypeTime:
		return TimeLayout
	}
	return DateTimeLayout
}

// toInt returns int64, or a decimal string for unsigned values that do
// not fit in int64.
func (c *Column) toInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return fromUint(x), nil
	case float32:
		return c.floatToInt(float64(x), v)
	case float64:
		return c.floatToInt(x, v)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return fromUint(u), nil
		}
		if n, ok := new(big.Int).SetString(s, 10); ok && n.Sign() > 0 {
			return n.String(), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return c.floatToInt(f, v)
		}
		return nil, c.castError("integer", v, nil)
	}
	return nil, c.castError("integer", v, nil)
}

// floatToInt truncates f toward zero. NaN, infinities and values outside
// the int64 range are rejected.
func (c *Column) floatToInt(f float64, v any) (any, error) {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, c.castError("integer", v, nil)
	}
	return int64(f), nil
}

func fromUint(u uint64) any {
	if u > math.MaxInt64 {
		return strconv.FormatUint(u, 10)
	}
	return int64(u)
}

func (c *Column) toFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		s := strings.TrimSpace(x)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, c.castError("float", v, err)
		}
		if c.Type.exact() {
			return s, nil
		}
		return f, nil
	}
	return nil, c.castError("float", v, nil)
}

func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "0", "f", "false", "\x00":
			return false
		}
		return true
	case []byte:
		return toBool(string(x))
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	}
	return true
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func toBytes(v any) []byte {
	switch x := v.(type) {
	case []byte:
		return x
	case string:
		return []byte(x)
	}
	return []byte(toString(v))
}

func toUUID(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		return uuid.ParseBytes(x)
	case string:
		return uuid.Parse(x)
	}
	return uuid.Nil, fmt.Errorf("unsupported type %T", v)
}
