package value

import "testing"

func TestParseNumber_Kinds(t *testing.T) {
	tests := []struct {
		text string
		want Kind
	}{
		{"42", KindNumber},
		{"1.5", KindNumber},
		{"9007199254740992", KindNumber},
		{"9007199254740993", KindBigInt},
		{"10000000000000000", KindBigInt},
		{"10000000000000000.0", KindBigInt},
		{"1e16", KindBigInt},
		{"1E16", KindBigInt},
		{"-1e16", KindBigInt},
		{"1e15", KindNumber},
		{"1.5e300", KindBigInt},
		{"9007199254740993.5", KindNumber},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseNumber(tt.text)
			if err != nil {
				t.Fatalf("ParseNumber(%q) error = %v", tt.text, err)
			}
			if got.Kind() != tt.want {
				t.Errorf("ParseNumber(%q) kind = %v, want %v", tt.text, got.Kind(), tt.want)
			}
		})
	}
}

func TestDecodeJSON_ExponentIntegers(t *testing.T) {
	doc, err := DecodeJSON([]byte(`{"a":1e16,"b":10000000000000000.0,"c":10000000000000000}`))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	obj := doc.(Object)
	for _, k := range []string{"a", "b"} {
		if !Equal(obj[k], obj["c"]) || obj[k].Kind() != obj["c"].Kind() {
			t.Errorf("%s = %v (%v), want %v (%v)", k, obj[k], obj[k].Kind(), obj["c"], obj["c"].Kind())
		}
	}

	// The canonical form must decode back to the same kinds.
	again, err := DecodeJSON([]byte(Canonical(doc)))
	if err != nil {
		t.Fatalf("DecodeJSON(Canonical) error = %v", err)
	}
	if !Equal(doc, again) {
		t.Errorf("canonical round trip = %s, want %s", Canonical(again), Canonical(doc))
	}
}
