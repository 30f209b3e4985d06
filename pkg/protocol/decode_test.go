package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode_CanonicalTags(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"output","content":"hello\n"}`))
	require.NoError(t, err)
	require.Equal(t, TypeOutput, msg.Type)
	require.Equal(t, "hello\n", msg.Content)

	msg, err = Decode([]byte(`{"type":"total_units","count":10}`))
	require.NoError(t, err)
	require.Equal(t, TypeTotalUnits, msg.Type)
	require.Equal(t, 10, msg.Count)

	msg, err = Decode([]byte(`{"type":"complete","output_files":["a.txt"],"total_duration":12.5}`))
	require.NoError(t, err)
	require.Equal(t, TypeComplete, msg.Type)
	require.Equal(t, []string{"a.txt"}, msg.OutputFiles)
	require.NotNil(t, msg.TotalDuration)
	require.InDelta(t, 12.5, *msg.TotalDuration, 0.0001)
	require.False(t, msg.Failed())
}

func TestDecode_LegacyAliases(t *testing.T) {
	cases := map[string]MessageType{
		`{"type":"total_segments","count":4}`:                 TypeTotalUnits,
		`{"type":"segment_progress","current":2}`:             TypeUnitProgress,
		`{"type":"processing_update","message":"Finalizing"}`: TypeStatusText,
		`{"type":"gui_active","content":"window open"}`:       TypeExternalReady,
		`{"type":"video_ready","path":"final/x.mp4"}`:         TypeArtifactReady,
	}
	for in, want := range cases {
		msg, err := Decode([]byte(in))
		require.NoError(t, err, in)
		require.Equal(t, want, msg.Type, in)
		require.NotEqual(t, string(want), msg.RawType, in)
	}
}

func TestDecode_HeartbeatForms(t *testing.T) {
	for _, in := range []string{``, `   `, `{}`, `{"type":"heartbeat"}`, `null`} {
		msg, err := Decode([]byte(in))
		if in == "null" {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err, in)
		require.Equal(t, TypeHeartbeat, msg.Type, in)
	}
}

func TestDecode_UnknownAndMalformed(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"future_feature","x":1}`))
	require.NoError(t, err)
	require.Equal(t, TypeUnknown, msg.Type)
	require.Equal(t, "future_feature", msg.RawType)

	_, err = Decode([]byte(`{'type': 'error', 'content': 'Invalid process type specified.'}`))
	require.Error(t, err)

	_, err = Decode([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"type":"total_units","count":"four"}`))
	require.Error(t, err)
}

func TestMessage_FailedCompletion(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"complete","status":"error","message":"exit 2"}`))
	require.NoError(t, err)
	require.True(t, msg.IsTerminal())
	require.True(t, msg.Failed())
	require.Nil(t, msg.OutputFiles)
}

func TestValidateKind(t *testing.T) {
	require.NoError(t, ValidateKind("script_builder"))
	require.NoError(t, ValidateKind("podcast-builder"))
	require.Error(t, ValidateKind(""))
	require.Error(t, ValidateKind("Script Builder"))
	require.Error(t, ValidateKind("../etc"))
}

func TestAck_ErrorsText(t *testing.T) {
	require.Equal(t, "", Ack{}.ErrorsText())
	require.Equal(t, "bad", Ack{Errors: []byte(`"bad"`)}.ErrorsText())
	require.Equal(t, "a\nb", Ack{Errors: []byte(`["a","b"]`)}.ErrorsText())
	require.Equal(t, `{"k":1}`, Ack{Errors: []byte(`{"k":1}`)}.ErrorsText())
}
