package ai

import "testing"

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around", in: "Here you go:\n{\"a\":1}\nThanks", want: `{"a":1}`},
		{name: "no object", in: "nothing here", want: "nothing here"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Fatalf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecodeObject(t *testing.T) {
	data, err := DecodeObject("```json\n{\"summary\": \" fits \", \"items\": [\"a\", \" \", \"b\"]}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := CoerceString(data["summary"]); got != "fits" {
		t.Fatalf("unexpected summary: %q", got)
	}
	if got := CoerceStrings(data["items"]); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected items: %v", got)
	}

	if _, err := DecodeObject("not json"); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestCoerceHelpers(t *testing.T) {
	if got := CoerceString(map[string]any{"k": "v"}); got != `{"k":"v"}` {
		t.Fatalf("unexpected string: %q", got)
	}
	if got := CoerceString(nil); got != "" {
		t.Fatalf("unexpected string for nil: %q", got)
	}
	if got := CoerceStrings("- one\n* two\n\nthree"); len(got) != 3 || got[1] != "two" {
		t.Fatalf("unexpected lines: %v", got)
	}
}
