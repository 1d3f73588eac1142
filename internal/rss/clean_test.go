package rss

import "testing"

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "control_chars_stripped",
			in:   "Hello\x00\x08 World\x1f!",
			want: "Hello World!",
		},
		{
			name: "html_entities_decoded",
			in:   "Lakers &amp; Celtics &lt;preview&gt; &quot;tonight&quot; &#39;live&#39;",
			want: `Lakers & Celtics <preview> "tonight" 'live'`,
		},
		{
			name: "nbsp_and_whitespace_collapsed",
			in:   "one&nbsp;two   three\n\tfour",
			want: "one two three four",
		},
		{
			name: "replacement_rune_dropped",
			in:   "odd�s update",
			want: "odds update",
		},
		{
			name: "leading_trailing_trimmed",
			in:   "  padded title  ",
			want: "padded title",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanText(tc.in)
			if got != tc.want {
				t.Fatalf("CleanText(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
