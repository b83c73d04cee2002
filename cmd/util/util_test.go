package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
}

func TestWriteOutput(t *testing.T) {
	rec := travel.Record{ID: 3, Destination: "Lisbon", Date: 12, HistoricalEvents: []string{"earthquake"}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteOutput(&buf, "json", rec))
		assert.JSONEq(t, `{"id":3,"destination":"Lisbon","date":12,"notes":"","historical_events":["earthquake"]}`, buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteOutput(&buf, "yaml", rec))
		assert.YAMLEq(t, "id: 3\ndestination: Lisbon\ndate: 12\nnotes: \"\"\nhistorical_events: [earthquake]\n", buf.String())
	})

	t.Run("invalid", func(t *testing.T) {
		assert.Error(t, WriteOutput(&bytes.Buffer{}, "xml", rec))
	})
}

func TestSerializerByName(t *testing.T) {
	for _, name := range []string{"json", "gob", "binary"} {
		s, err := SerializerByName(name)
		assert.NoError(t, err, name)
		assert.NotNil(t, s, name)
	}
	_, err := SerializerByName("protobuf")
	assert.Error(t, err)
}

func TestGetClientConfig(t *testing.T) {
	viper.Set("transport-endpoints", "localhost:8080, ,http://localhost:8081")
	viper.Set("timeout", 7)
	viper.Set("transport-retries", 2)
	viper.Set("transport-conn-per-endpoint", 4)
	t.Cleanup(viper.Reset)

	conf := GetClientConfig()
	assert.Equal(t, []string{"localhost:8080", "http://localhost:8081"}, conf.Endpoints)
	assert.Equal(t, 7, conf.TimeoutSecond)
	assert.Equal(t, 2, conf.RetryCount)
	assert.Equal(t, 4, conf.ConnectionsPerEndpoint)
}

func TestGetTransport(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("transport", "http")
	_, err := GetTransport()
	assert.NoError(t, err)
	_, err = GetServerTransport()
	assert.NoError(t, err)

	viper.Set("transport", "tcp")
	_, err = GetTransport()
	assert.Error(t, err)
	_, err = GetServerTransport()
	assert.Error(t, err)
}
