package coordinator_test

import (
	"errors"
	"testing"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
)

func TestNewParametersValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		n, t    uint16
		wantErr error
	}{
		"valid":              {n: 3, t: 1, wantErr: nil},
		"n too small":        {n: 1, t: 0, wantErr: coordinator.ErrInvalidParties},
		"t zero":             {n: 3, t: 0, wantErr: coordinator.ErrInvalidThreshold},
		"t equals n":         {n: 3, t: 3, wantErr: coordinator.ErrInvalidThreshold},
		"t greater than n":   {n: 3, t: 4, wantErr: coordinator.ErrInvalidThreshold},
		"minimal valid pair": {n: 2, t: 1, wantErr: nil},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := coordinator.NewParameters(tc.n, tc.t)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("NewParameters(%d, %d) = %v, want nil", tc.n, tc.t, err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("NewParameters(%d, %d) = %v, want %v", tc.n, tc.t, err, tc.wantErr)
			}
		})
	}
}

func TestThresholdReachedKeygen(t *testing.T) {
	t.Parallel()

	params, err := coordinator.NewParameters(4, 2)
	if err != nil {
		t.Fatalf("NewParameters: %v", err)
	}

	for parties := 0; parties < int(params.N); parties++ {
		if params.ThresholdReached(coordinator.SessionKindKeygen, parties) {
			t.Errorf("ThresholdReached(keygen, %d) = true, want false (n=%d)", parties, params.N)
		}
	}
	if !params.ThresholdReached(coordinator.SessionKindKeygen, int(params.N)) {
		t.Errorf("ThresholdReached(keygen, n=%d) = false, want true", params.N)
	}
}

func TestThresholdReachedSign(t *testing.T) {
	t.Parallel()

	params, err := coordinator.NewParameters(5, 2)
	if err != nil {
		t.Fatalf("NewParameters: %v", err)
	}

	for parties := 0; parties <= int(params.T); parties++ {
		if params.ThresholdReached(coordinator.SessionKindSign, parties) {
			t.Errorf("ThresholdReached(sign, %d) = true, want false (t=%d)", parties, params.T)
		}
	}
	if !params.ThresholdReached(coordinator.SessionKindSign, int(params.T)+1) {
		t.Errorf("ThresholdReached(sign, t+1=%d) = false, want true", params.T+1)
	}
}

func TestThresholdReachedUnknownKind(t *testing.T) {
	t.Parallel()

	params, err := coordinator.NewParameters(3, 1)
	if err != nil {
		t.Fatalf("NewParameters: %v", err)
	}
	if params.ThresholdReached(coordinator.SessionKind("bogus"), 100) {
		t.Error("ThresholdReached with an unknown kind should never report ready")
	}
}
