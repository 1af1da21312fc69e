package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopify-ingestion-service/internal/domain"

	"github.com/shopspring/decimal"
)

// DecodeRecord parses one JSON object into a raw document, keeping numbers exact
func DecodeRecord(data []byte) (domain.RawDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc domain.RawDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: payload is not an object", domain.ErrMalformedPayload)
	}
	return doc, nil
}

// externalID reads the first present key as an identifier. Numbers are rendered without exponent.
func externalID(doc domain.RawDocument, keys ...string) (string, error) {
	for _, key := range keys {
		v, ok := doc[key]
		if !ok || v == nil {
			continue
		}
		switch id := v.(type) {
		case json.Number:
			if i, err := id.Int64(); err == nil {
				return strconv.FormatInt(i, 10), nil
			}
			return id.String(), nil
		case string:
			if s := strings.TrimSpace(id); s != "" {
				return s, nil
			}
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64), nil
		default:
			return "", fmt.Errorf("%w: %s has unsupported type %T", domain.ErrMalformedPayload, key, v)
		}
	}
	return "", fmt.Errorf("%w: missing %s", domain.ErrMalformedPayload, strings.Join(keys, " or "))
}

func optString(doc domain.RawDocument, key string) *string {
	switch v := doc[key].(type) {
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	}
	return nil
}

// optDecimal parses a monetary value. Absent, null and empty values are nil, never zero.
func optDecimal(doc domain.RawDocument, key string) (*decimal.Decimal, error) {
	var raw string
	switch v := doc[key].(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.TrimSpace(v)
	case json.Number:
		raw = v.String()
	case float64:
		d := decimal.NewFromFloat(v)
		return &d, nil
	default:
		return nil, fmt.Errorf("%w: %s has unsupported type %T", domain.ErrMalformedPayload, key, v)
	}
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a decimal: %q", domain.ErrMalformedPayload, key, raw)
	}
	return &d, nil
}

func optInt(doc domain.RawDocument, key string) (*int64, error) {
	switch v := doc[key].(type) {
	case nil:
		return nil, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not an integer", domain.ErrMalformedPayload, key)
		}
		return &i, nil
	case float64:
		i := int64(v)
		return &i, nil
	case string:
		if v == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not an integer", domain.ErrMalformedPayload, key)
		}
		return &i, nil
	default:
		return nil, fmt.Errorf("%w: %s has unsupported type %T", domain.ErrMalformedPayload, key, v)
	}
}

func optTime(doc domain.RawDocument, key string) (*time.Time, error) {
	v, ok := doc[key].(string)
	if !ok || v == "" {
		if doc[key] != nil && !ok {
			return nil, fmt.Errorf("%w: %s is not a timestamp", domain.ErrMalformedPayload, key)
		}
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not RFC3339: %q", domain.ErrMalformedPayload, key, v)
	}
	t = t.UTC()
	return &t, nil
}

func arrayLen(doc domain.RawDocument, key string) int {
	if items, ok := doc[key].([]any); ok {
		return len(items)
	}
	return 0
}
