package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "default",
			opts: Options{Source: `Builds\WebGL`, Target: `D:\site\play`},
			want: []string{`Builds\WebGL`, `D:\site\play`, "*.*", "/S", "/E", "/V", "/PURGE", "/NP"},
		},
		{
			name: "simulate",
			opts: Options{Source: "a", Target: "b", Simulate: true},
			want: []string{"a", "b", "*.*", "/S", "/E", "/V", "/PURGE", "/NP", "/L"},
		},
		{
			name: "with progress",
			opts: Options{Source: "a", Target: "b", Progress: true},
			want: []string{"a", "b", "*.*", "/S", "/E", "/V", "/PURGE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildArgs(tt.opts))
		})
	}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		code int
		want Outcome
		ok   bool
	}{
		{code: 0, want: Unchanged, ok: true},
		{code: 1, want: Copied, ok: true},
		{code: 2, want: Failed, ok: false},
		{code: 8, want: Failed, ok: false},
		{code: -1, want: Failed, ok: false},
	}

	for _, tt := range tests {
		got := Interpret(tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
		assert.Equal(t, tt.ok, got.OK(), "code %d", tt.code)
	}
}
