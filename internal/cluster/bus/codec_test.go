package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	req := &PingRequest{FromNodeID: "node-a"}
	data, err := c.Marshal(req)
	require.NoError(t, err)

	out := &PingRequest{}
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, req.FromNodeID, out.FromNodeID)
}

func TestJSONCodecName(t *testing.T) {
	assert.Equal(t, "json", jsonCodec{}.Name())
}

func TestMoveKeysFrameDiscriminatesBatchFromFinal(t *testing.T) {
	c := jsonCodec{}

	batchData, err := c.Marshal(&MoveKeysFrame{Batch: &KeyBatch{DB: 0, Key: []byte("k"), Payload: []byte("v")}})
	require.NoError(t, err)
	var batchFrame MoveKeysFrame
	require.NoError(t, c.Unmarshal(batchData, &batchFrame))
	assert.NotNil(t, batchFrame.Batch)
	assert.Nil(t, batchFrame.Final)

	finalData, err := c.Marshal(&MoveKeysFrame{Final: &MoveKeysResponse{Moved: 3}})
	require.NoError(t, err)
	var finalFrame MoveKeysFrame
	require.NoError(t, c.Unmarshal(finalData, &finalFrame))
	assert.Nil(t, finalFrame.Batch)
	require.NotNil(t, finalFrame.Final)
	assert.Equal(t, 3, finalFrame.Final.Moved)
}
