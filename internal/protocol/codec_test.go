package protocol

import (
	"encoding/json"
	"errors"
	"resourcerush/internal/economy"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in, err := Parse([]byte(`{"type":"join-room","payload":{"roomId":"ABC","playerName":"Bob"}}`))
	require.NoError(t, err)
	assert.Equal(t, JoinRoomType, in.Type)

	var p JoinRoom
	require.NoError(t, Decode(in.Payload, &p))
	assert.Equal(t, JoinRoom{RoomID: "ABC", PlayerName: "Bob"}, p)
}

func TestParse_Malformed(t *testing.T) {
	for _, raw := range []string{`not json`, `{"payload":{}}`, `[]`} {
		_, err := Parse([]byte(raw))
		assert.True(t, errors.Is(err, ErrMalformed), "Parse(%s) = %v", raw, err)
	}
}

func TestDecode_EmptyPayload(t *testing.T) {
	var p struct{}
	assert.NoError(t, Decode(nil, &p))
	assert.NoError(t, Decode(json.RawMessage("null"), &p))
}

func TestDecode_CreateRoom(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid public", `{"name":"Test","playerName":"Alice","visibility":"public"}`, false},
		{"visibility optional", `{"name":"Test","playerName":"Alice"}`, false},
		{"missing name", `{"playerName":"Alice"}`, true},
		{"missing player", `{"name":"Test"}`, true},
		{"bad visibility", `{"name":"Test","playerName":"Alice","visibility":"secret"}`, true},
		{"player name too long", `{"name":"Test","playerName":"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p CreateRoom
			err := Decode(json.RawMessage(tt.raw), &p)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecode_PlayerAction(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"buy", `{"kind":"buy","resource":"gold","amount":5}`, false},
		{"sabotage with target", `{"kind":"sabotage","resource":"oil","amount":3,"targetName":"Bob"}`, false},
		{"sabotage without target", `{"kind":"sabotage","resource":"oil","amount":3}`, true},
		{"zero amount", `{"kind":"sell","resource":"gold","amount":0}`, true},
		{"negative amount", `{"kind":"sell","resource":"gold","amount":-2}`, true},
		{"largest amount", `{"kind":"buy","resource":"gold","amount":1000000}`, false},
		{"amount too large", `{"kind":"buy","resource":"gold","amount":4611686018427387904}`, true},
		{"unknown kind", `{"kind":"steal","resource":"gold","amount":1}`, true},
		{"unknown resource", `{"kind":"buy","resource":"silver","amount":1}`, true},
		{"wrong type", `{"kind":"buy","resource":"gold","amount":"five"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PlayerAction
			err := Decode(json.RawMessage(tt.raw), &p)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlayerAction_Action(t *testing.T) {
	act, err := PlayerAction{Kind: "sabotage", Resource: "water", Amount: 4, TargetName: "Bob"}.Action()
	require.NoError(t, err)
	assert.Equal(t, economy.Sabotage{Resource: economy.Water, Amount: 4, Target: "Bob"}, act)

	act, err = PlayerAction{Kind: "burn", Resource: "oil", Amount: 1}.Action()
	require.NoError(t, err)
	assert.Equal(t, economy.Burn{Resource: economy.Oil, Amount: 1}, act)
}

func TestEncode(t *testing.T) {
	data, err := Encode(RoomClosedType, RoomClosed{Reason: "All players exited"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"room-closed","payload":{"reason":"All players exited"}}`, string(data))

	data, err = Encode(RoomStartedType, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"room-started","payload":{}}`, string(data))
}

func TestRoomState_HistoryRoundTrip(t *testing.T) {
	state := RoomState{ID: "R", ActionHistory: map[int][]string{1: {"a"}, 12: {"b", "c"}}}
	data, err := json.Marshal(state)
	require.NoError(t, err)

	var back RoomState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, state.ActionHistory, back.ActionHistory)
}
