package catalog

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		max   int
		want  string
		check func(t *testing.T, got string)
	}{
		{name: "short input is kept", in: "Added book", max: 500, want: "Added book"},
		{name: "ascii is cut with an ellipsis", in: strings.Repeat("a", 20), max: 10, want: "aaaaaaa..."},
		{
			name: "multi-byte characters are not split",
			in:   `Added book "` + strings.Repeat("ж", 300) + `"`,
			max:  maxAuditMessage,
			check: func(t *testing.T, got string) {
				assert.True(t, utf8.ValidString(got))
				assert.LessOrEqual(t, len(got), maxAuditMessage)
				assert.True(t, strings.HasSuffix(got, "ж..."))
			},
		},
		{name: "cut lands inside a rune", in: "ab" + "日本語", max: 7, want: "ab..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if tt.check != nil {
				tt.check(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_NonASCIITitleStaysValidUTF8(t *testing.T) {
	env := setupService(t)

	_, err := env.svc.AddBook(context.Background(), AddBookInput{Title: strings.Repeat("Война и мир ", 40)})
	assert.NoError(t, err)
	assert.True(t, utf8.ValidString(env.auditor.last().Description))
}
