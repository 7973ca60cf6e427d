package toolexec

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoDefinition() Definition {
	return Definition{
		Name:        "echo",
		Description: "Echo back the message argument.",
		Parameters: []Parameter{
			{Name: "message", Type: "string", Description: "Message to echo", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			msg, _ := args["message"].(string)
			return &Outcome{Payload: map[string]interface{}{"message": msg}}, nil
		},
	}
}

func TestRegister(t *testing.T) {
	e := New(0)

	require.NoError(t, e.Register(echoDefinition()))

	assert.NotNil(t, e.Get("echo"))
	assert.Nil(t, e.Get("missing"))
}

func TestRegister_Invalid(t *testing.T) {
	e := New(0)

	tests := []struct {
		name string
		def  Definition
	}{
		{"empty name", Definition{Description: "d", Handler: func(context.Context, map[string]interface{}) (*Outcome, error) { return nil, nil }}},
		{"empty description", Definition{Name: "x", Handler: func(context.Context, map[string]interface{}) (*Outcome, error) { return nil, nil }}},
		{"nil handler", Definition{Name: "x", Description: "d"}},
		{"bad param type", Definition{
			Name: "x", Description: "d",
			Parameters: []Parameter{{Name: "p", Type: "tuple"}},
			Handler:    func(context.Context, map[string]interface{}) (*Outcome, error) { return nil, nil },
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, e.Register(tt.def))
		})
	}
}

func TestList_Sorted(t *testing.T) {
	e := New(0)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		def := echoDefinition()
		def.Name = name
		require.NoError(t, e.Register(def))
	}

	defs := e.List()

	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "zeta", defs[2].Name)
}

func TestInvoke_OK(t *testing.T) {
	e := New(0)
	require.NoError(t, e.Register(echoDefinition()))

	res := e.Invoke(context.Background(), Call{
		ID:   "call-1",
		Name: "echo",
		Args: map[string]interface{}{"message": "hi"},
	})

	assert.Equal(t, "call-1", res.CallID)
	assert.Equal(t, StatusOK, res.Status)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.Output), &payload))
	assert.Equal(t, "hi", payload["message"])
}

func TestInvoke_UnknownTool(t *testing.T) {
	e := New(0)

	res := e.Invoke(context.Background(), Call{ID: "c1", Name: "nope"})

	assert.Equal(t, "c1", res.CallID)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, ReasonUnknownTool, res.Reason)
}

func TestInvoke_MissingRequiredArg(t *testing.T) {
	e := New(0)
	require.NoError(t, e.Register(echoDefinition()))

	res := e.Invoke(context.Background(), Call{ID: "c1", Name: "echo", Args: map[string]interface{}{}})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, ReasonInvalidArgs, res.Reason)
}

func TestInvoke_WrongArgType(t *testing.T) {
	e := New(0)
	require.NoError(t, e.Register(echoDefinition()))

	res := e.Invoke(context.Background(), Call{
		ID:   "c1",
		Name: "echo",
		Args: map[string]interface{}{"message": 42},
	})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, ReasonInvalidArgs, res.Reason)
}

func TestInvoke_UnknownArgRejected(t *testing.T) {
	e := New(0)
	require.NoError(t, e.Register(echoDefinition()))

	res := e.Invoke(context.Background(), Call{
		ID:   "c1",
		Name: "echo",
		Args: map[string]interface{}{"message": "hi", "bogus": true},
	})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, ReasonInvalidArgs, res.Reason)
}

func TestInvoke_HandlerError(t *testing.T) {
	e := New(0)
	require.NoError(t, e.Register(Definition{
		Name:        "boom",
		Description: "Always fails.",
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			return nil, fmt.Errorf("exploded")
		},
	}))

	res := e.Invoke(context.Background(), Call{ID: "c1", Name: "boom"})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, ReasonExecError, res.Reason)
	assert.Contains(t, res.Error, "exploded")
}

func TestInvoke_PermissionDeniedReason(t *testing.T) {
	e := New(0)
	require.NoError(t, e.Register(Definition{
		Name:        "denied",
		Description: "Always denied.",
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			return nil, fmt.Errorf("%w: nope", ErrPermissionDenied)
		},
	}))

	res := e.Invoke(context.Background(), Call{ID: "c1", Name: "denied"})

	assert.Equal(t, ReasonPermissionDenied, res.Reason)
}

func TestInvoke_TimeoutReason(t *testing.T) {
	e := New(50 * time.Millisecond)
	require.NoError(t, e.Register(Definition{
		Name:        "slow",
		Description: "Sleeps past the executor timeout.",
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return &Outcome{Payload: map[string]interface{}{}}, nil
			}
		},
	}))

	res := e.Invoke(context.Background(), Call{ID: "c1", Name: "slow"})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, ReasonTimeout, res.Reason)
}

func TestResult_Text(t *testing.T) {
	ok := Result{Status: StatusOK, Output: `{"ok":true}`}
	assert.Equal(t, `{"ok":true}`, ok.Text())

	denied := Result{Status: StatusError, Reason: ReasonPermissionDenied, Error: "blocked"}
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(denied.Text()), &payload))
	assert.Equal(t, false, payload["ok"])
	assert.Equal(t, string(ReasonPermissionDenied), payload["reason"])
}
