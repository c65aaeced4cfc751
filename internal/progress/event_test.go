package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventConstructorsAndValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		evt     Event
		str     string
		wantErr string
	}{
		{name: "status", evt: Status("hi"), str: "status(hi)"},
		{name: "progress", evt: Progress(1, 10), str: "progress(1/10)"},
		{name: "progress past max", evt: Progress(11, 10), str: "progress(11/10)"},
		{name: "installing", evt: Installing(), str: "lifecycle(installing)"},
		{name: "updating", evt: Updating("1.70.0"), str: "lifecycle(updating: 1.70.0)"},
		{name: "missing kind", evt: Event{}, str: "unknown()", wantErr: "kind is required"},
		{name: "unknown kind", evt: Event{Kind: "nope"}, str: "unknown(nope)", wantErr: "unknown event kind"},
		{
			name:    "lifecycle without kind",
			evt:     Event{Kind: KindLifecycle},
			str:     "lifecycle()",
			wantErr: "requires a lifecycle kind",
		},
		{
			name:    "unknown lifecycle",
			evt:     Event{Kind: KindLifecycle, Lifecycle: Lifecycle{Kind: "removing"}},
			str:     "lifecycle(removing)",
			wantErr: "unknown lifecycle kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.str, tt.evt.String())
			err := tt.evt.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
