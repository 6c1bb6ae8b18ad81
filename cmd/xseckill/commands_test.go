package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xseckill/internal/app"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", usagef("--stock must be >= 0"), 2},
		{"wrapped usage", fmt.Errorf("publish: %w", usagef("bad")), 2},
		{"invalid config", fmt.Errorf("%w: redis.addrs is required", app.ErrInvalidConfig), 2},
		{"runtime", errors.New("dial tcp: refused"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestPublishVoucher_ValidatesFlagsBeforeConnecting(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing voucher", []string{"xseckill", "publish-voucher", "--stock", "10"}, "--voucher-id"},
		{"missing stock", []string{"xseckill", "publish-voucher", "--voucher-id", "10"}, "--stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := createApp()
			cmd.Writer, cmd.ErrWriter = &bytes.Buffer{}, &bytes.Buffer{}

			err := cmd.Run(context.Background(), tt.args)

			var uerr *usageError
			require.ErrorAs(t, err, &uerr)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestRun_InvalidConfigExitCode(t *testing.T) {
	t.Setenv("XSECKILL_CACHE_SHOP_MODE", "lru")

	assert.Equal(t, 2, run(context.Background(), []string{"xseckill", "prewarm"}))
}

func TestCreateApp_Commands(t *testing.T) {
	cmd := createApp()
	names := make([]string, 0, len(cmd.Commands))
	for _, c := range cmd.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"serve", "prewarm", "publish-voucher", "migrate"}, names)
}
