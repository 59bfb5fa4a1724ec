package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeReport counts the values that had to be defaulted while decoding.
type DecodeReport struct {
	Defaults int
}

func (r *DecodeReport) add(defaulted bool) {
	if defaulted {
		r.Defaults++
	}
}

// DecodeLoot coerces a global_loot payload. Anything that is not an object
// decodes to zero totals.
func DecodeLoot(raw []byte) (LootTotals, DecodeReport) {
	var rep DecodeReport
	doc := parse(raw)
	if !doc.IsObject() {
		return LootTotals{}, rep
	}
	return decodeLootFields(doc, &rep), rep
}

// DecodeUsers coerces a users payload (device id -> record) into records in
// document order. The collection key is the device id; a device_id field
// inside the record is ignored. Firebase may send sequential keys as an
// array, in which case the index is the key.
func DecodeUsers(raw []byte) ([]UserRecord, DecodeReport) {
	var rep DecodeReport
	doc := parse(raw)
	if !doc.IsObject() && !doc.IsArray() {
		return []UserRecord{}, rep
	}

	users := make([]UserRecord, 0, 16)
	forEachKeyed(doc, func(key string, value gjson.Result) {
		if !value.IsObject() {
			return
		}
		u := UserRecord{
			DeviceID:       key,
			Name:           coerceString(value.Get("name")),
			RegisteredTime: coerceString(value.Get("registered_time")),
			UsedKey:        coerceString(value.Get("used_key")),
			LastOnline:     coerceString(value.Get("last_online")),
		}
		var defaulted bool
		u.AttackCount, defaulted = coerceCount(value.Get("attack_count"))
		rep.add(defaulted)
		u.Loot = decodeLootFields(value.Get("loot"), &rep)
		users = append(users, u)
	})
	return users, rep
}

// DecodeFeedback coerces a feedbacks payload (id -> entry) in document order.
func DecodeFeedback(raw []byte) ([]FeedbackEntry, DecodeReport) {
	var rep DecodeReport
	doc := parse(raw)
	if !doc.IsObject() && !doc.IsArray() {
		return []FeedbackEntry{}, rep
	}

	entries := make([]FeedbackEntry, 0, 16)
	forEachKeyed(doc, func(key string, value gjson.Result) {
		if !value.IsObject() {
			return
		}
		entries = append(entries, FeedbackEntry{
			ID:        key,
			UserName:  coerceString(value.Get("user_name")),
			DeviceID:  coerceString(value.Get("device_id")),
			Text:      coerceString(value.Get("feedback")),
			Timestamp: coerceString(value.Get("timestamp")),
		})
	})
	return entries, rep
}

// DecodeNews accepts a plain string, an object with a non-empty message, or
// any other truthy value (kept as its JSON text). Falsy values are absent.
func DecodeNews(raw []byte) News {
	doc := parse(raw)
	switch doc.Type {
	case gjson.String:
		if doc.Str == "" {
			return News{}
		}
		return News{Message: doc.Str, Present: true}
	case gjson.Number:
		if doc.Float() == 0 {
			return News{}
		}
		return News{Message: doc.Raw, Present: true}
	case gjson.True:
		return News{Message: "true", Present: true}
	case gjson.JSON:
		if msg := doc.Get("message"); doc.IsObject() && msg.Exists() && truthy(msg) {
			return News{Message: coerceString(msg), Present: true}
		}
		return News{Message: compact(doc.Raw), Present: true}
	default:
		return News{}
	}
}

// forEachKeyed walks an object in document order, or an array by index.
func forEachKeyed(doc gjson.Result, fn func(key string, value gjson.Result)) {
	if doc.IsArray() {
		for i, value := range doc.Array() {
			fn(strconv.Itoa(i), value)
		}
		return
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		fn(key.Str, value)
		return true
	})
}

func parse(raw []byte) gjson.Result {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

func decodeLootFields(obj gjson.Result, rep *DecodeReport) LootTotals {
	if !obj.IsObject() {
		rep.add(true)
		return LootTotals{}
	}
	var (
		l         LootTotals
		defaulted bool
	)
	l.Gold, defaulted = coerceCount(obj.Get("gold"))
	rep.add(defaulted)
	l.Elixir, defaulted = coerceCount(obj.Get("elixir"))
	rep.add(defaulted)
	l.DarkElixir, defaulted = coerceCount(obj.Get("dark_elixir"))
	rep.add(defaulted)
	return l
}

// coerceCount follows Number(x) || 0 and then clamps to [0, MaxCount]. The
// bool result reports whether the value was defaulted.
func coerceCount(r gjson.Result) (int64, bool) {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, true
		}
		f = v
	case gjson.True:
		return 1, false
	case gjson.False:
		return 0, false
	default:
		return 0, true
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, true
	}
	if f >= float64(MaxCount) {
		return MaxCount, false
	}
	return int64(f), false
}

func coerceString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	default:
		return ""
	}
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

func compact(raw string) string {
	return gjson.Get(raw, "@ugly").Raw
}
