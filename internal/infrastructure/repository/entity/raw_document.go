package entity

import (
	"encoding/json"
	"strconv"

	"shopify-ingestion-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RawToMongo prepares a raw snapshot for storage. Integral numbers become int64 and every other
// number becomes Decimal128, so the stored digits match the payload ("1.50" stays "1.50").
func RawToMongo(doc domain.RawDocument) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = rawValueToMongo(v)
	}
	return out
}

func rawValueToMongo(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if d, err := primitive.ParseDecimal128(val.String()); err == nil {
			return d
		}
		// outside Decimal128 range: keep the text
		return val.String()
	case map[string]any:
		return RawToMongo(val)
	case domain.RawDocument:
		return RawToMongo(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = rawValueToMongo(item)
		}
		return items
	default:
		return v
	}
}

// RawFromMongo turns a stored snapshot back into a raw document with json.Number values
func RawFromMongo(doc map[string]any) domain.RawDocument {
	if doc == nil {
		return nil
	}
	out := make(domain.RawDocument, len(doc))
	for k, v := range doc {
		out[k] = rawValueFromMongo(v)
	}
	return out
}

func rawValueFromMongo(v any) any {
	switch val := v.(type) {
	case primitive.Decimal128:
		return json.Number(val.String())
	case int32:
		return json.Number(strconv.FormatInt(int64(val), 10))
	case int64:
		return json.Number(strconv.FormatInt(val, 10))
	case primitive.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = e.Value
		}
		return map[string]any(RawFromMongo(m))
	case primitive.M:
		return map[string]any(RawFromMongo(val))
	case map[string]any:
		return map[string]any(RawFromMongo(val))
	case primitive.A:
		return rawSliceFromMongo(val)
	case []any:
		return rawSliceFromMongo(val)
	default:
		return v
	}
}

func rawSliceFromMongo(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = rawValueFromMongo(item)
	}
	return out
}
