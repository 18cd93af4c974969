package gtag

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisTaggerAppendsToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tagger := NewRedisTagger(client, "gtag")
	defer tagger.Close()

	require.NoError(t, tagger.Tag(CommandEvent, "filter_applied", Params{"filter_type": "brand", "filter_value": "Sony"}))
	require.NoError(t, tagger.Tag(CommandConfig, "G-TEST", Params{"page_location": "/b"}))

	entries, err := client.XRange(context.Background(), "gtag", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var first Call
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["call"].(string)), &first))
	assert.Equal(t, CommandEvent, first.Command)
	assert.Equal(t, "filter_applied", first.Target)
	assert.Equal(t, "Sony", first.Params["filter_value"])

	var second Call
	require.NoError(t, json.Unmarshal([]byte(entries[1].Values["call"].(string)), &second))
	assert.Equal(t, CommandConfig, second.Command)
}

func TestRedisTaggerReportsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	tagger := NewRedisTagger(client, "gtag")
	defer tagger.Close()
	mr.Close()

	assert.Error(t, tagger.Tag(CommandEvent, "search", Params{}))
}
