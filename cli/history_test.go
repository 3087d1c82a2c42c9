package cli

import (
	"bytes"
	"testing"

	"github.com/perfgo/unirelease/model"
	"github.com/stretchr/testify/assert"
)

func TestPrintHistory(t *testing.T) {
	h := model.BuildHistory{Builds: []model.BuildLogEntry{
		{Ver: "1.4.3", Date: "2024-03-15 09:30", Label: "Space Goats 1.4.3 (build 42)", HRef: "1.4.3/index.html", Notes: "hotfix"},
		{Ver: "1.4.2", Date: "2024-03-14 10:00", Label: "Space Goats 1.4.2 (build 41)"},
	}}

	tests := []struct {
		name  string
		h     model.BuildHistory
		limit int
		want  string
	}{
		{
			name: "empty",
			want: "No builds recorded\n",
		},
		{
			name:  "limited",
			h:     h,
			limit: 1,
			want: "\n=== Build History (2 total) ===\n\n" +
				"2024-03-15 09:30  1.4.3  Space Goats 1.4.3 (build 42)\n" +
				"   Link: 1.4.3/index.html\n" +
				"   Notes: hotfix\n\n",
		},
		{
			name: "all",
			h:    h,
			want: "\n=== Build History (2 total) ===\n\n" +
				"2024-03-15 09:30  1.4.3  Space Goats 1.4.3 (build 42)\n" +
				"   Link: 1.4.3/index.html\n" +
				"   Notes: hotfix\n\n" +
				"2024-03-14 10:00  1.4.2  Space Goats 1.4.2 (build 41)\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printHistory(&buf, tt.h, tt.limit)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
