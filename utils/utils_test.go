package utils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want map[string]string
	}{
		{
			name: "scan with equals flags",
			argv: []string{"photodb", "scan", "--folder=/photos", "--force"},
			want: map[string]string{"command": "scan", "folder": "/photos", "force": "true"},
		},
		{
			name: "flag value as separate argument",
			argv: []string{"photodb", "replay", "--in", "snap.jsonl"},
			want: map[string]string{"command": "replay", "in": "snap.jsonl"},
		},
		{
			name: "initdb with config",
			argv: []string{"photodb", "initdb", "--config=/etc/photodb.yaml"},
			want: map[string]string{"command": "initdb", "config": "/etc/photodb.yaml"},
		},
		{
			name: "no command",
			argv: []string{"photodb", "--version"},
			want: map[string]string{"version": "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()
			os.Args = tt.argv

			assert.Equal(t, tt.want, ParseArguments())
		})
	}
}
