package swarm

import (
	"errors"
	"testing"

	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		clientSide bool
		serverSide bool
	}{
		{
			name:     "not found",
			err:      errdefs.NotFound(errors.New("service yok")),
			notFound: true,
		},
		{
			name:       "invalid parameter is client-side",
			err:        errdefs.InvalidParameter(errors.New("bozuk istek")),
			clientSide: true,
		},
		{
			name:       "unauthorized is client-side",
			err:        errdefs.Unauthorized(errors.New("yetki yok")),
			clientSide: true,
		},
		{
			name:       "system error is server-side",
			err:        errdefs.System(errors.New("daemon hatası")),
			serverSide: true,
		},
		{
			name:       "unavailable is server-side",
			err:        errdefs.Unavailable(errors.New("daemon erişilemez")),
			serverSide: true,
		},
		{
			name:       "plain transport error is server-side",
			err:        errors.New("connection refused"),
			serverSide: true,
		},
		{
			name: "nil error matches nothing",
			err:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.clientSide, IsClientError(tt.err))
			assert.Equal(t, tt.serverSide, IsServerError(tt.err))
		})
	}
}
