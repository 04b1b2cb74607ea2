package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/internal"
	"github.com/dmitrymomot/mailroom/middlewares"
)

func TestRecover(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name      string
		opts      []middlewares.RecoverOption
		handler   internal.HandlerFunc
		wantErr   error
		wantPanic any
		wantStack bool
		maxStack  int
	}{
		{
			name:    "no panic passes the error through",
			handler: func(internal.Context) error { return boom },
			wantErr: boom,
		},
		{
			name:      "string panic with stack",
			handler:   func(internal.Context) error { panic("template missing") },
			wantPanic: "template missing",
			wantStack: true,
		},
		{
			name:      "error panic is unwrappable",
			handler:   func(internal.Context) error { panic(boom) },
			wantErr:   boom,
			wantPanic: boom,
			wantStack: true,
		},
		{
			name:      "stack size capped",
			opts:      []middlewares.RecoverOption{middlewares.WithRecoverStackSize(64)},
			handler:   func(internal.Context) error { panic("x") },
			wantPanic: "x",
			wantStack: true,
			maxStack:  64,
		},
		{
			name:      "stack disabled",
			opts:      []middlewares.RecoverOption{middlewares.WithRecoverDisablePrintStack()},
			handler:   func(internal.Context) error { panic("x") },
			wantPanic: "x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/emails", nil))
			err := middlewares.Recover(tt.opts...)(tt.handler)(c)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			pe, ok := middlewares.AsPanicError(err)
			if tt.wantPanic == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantPanic, pe.Value)
			assert.Equal(t, tt.wantStack, len(pe.Stack) > 0)
			if tt.maxStack > 0 {
				assert.LessOrEqual(t, len(pe.Stack), tt.maxStack)
			}
		})
	}
}
