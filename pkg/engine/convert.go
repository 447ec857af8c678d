package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// Convert coerces a raw column value into the declared attribute type.
// Nil stays nil. TypeAny returns the value unchanged.
func Convert(value any, t models.DataType) (any, error) {
	if value == nil {
		return nil, nil
	}
	if b, ok := value.([]byte); ok && t != models.TypeBytes && t != models.TypeUUID && t != models.TypeAny {
		value = string(b)
	}

	switch t {
	case models.TypeAny, "":
		return value, nil
	case models.TypeString:
		if ts, ok := value.(time.Time); ok {
			return ts.Format(time.RFC3339Nano), nil
		}
		return cast.ToStringE(value)
	case models.TypeInt:
		if d, ok := value.(decimal.Decimal); ok {
			return int(d.IntPart()), nil
		}
		return cast.ToIntE(value)
	case models.TypeInt64:
		if d, ok := value.(decimal.Decimal); ok {
			return d.IntPart(), nil
		}
		return cast.ToInt64E(value)
	case models.TypeFloat64:
		if d, ok := value.(decimal.Decimal); ok {
			return d.InexactFloat64(), nil
		}
		return cast.ToFloat64E(value)
	case models.TypeDecimal:
		return toDecimal(value)
	case models.TypeBool:
		return cast.ToBoolE(value)
	case models.TypeDate:
		ts, err := cast.ToTimeE(value)
		if err != nil {
			return nil, err
		}
		y, m, d := ts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, ts.Location()), nil
	case models.TypeTime, models.TypeTimestamp:
		return cast.ToTimeE(value)
	case models.TypeBytes:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
		return nil, fmt.Errorf("unable to convert %T to bytes", value)
	case models.TypeUUID:
		return toUUID(value)
	}
	return nil, fmt.Errorf("unsupported target type %q", t)
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unable to convert %T to decimal: %w", value, err)
	}
	return decimal.NewFromString(s)
}

func toUUID(value any) (uuid.UUID, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case [16]byte:
		return uuid.UUID(v), nil
	}
	return uuid.Nil, fmt.Errorf("unable to convert %T to uuid", value)
}
