package capability_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(name string) capability.Capability {
	return capability.New(name, "echoes its input", schema.Schema{"text": schema.String()},
		func(ctx context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		})
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := capability.NewRegistry()
	require.NoError(t, reg.Register(echo("b"), echo("a")))

	c, err := reg.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "a", c.Name())
	assert.Equal(t, "echoes its input", c.Description())

	names := []string{}
	for _, c := range reg.List() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	reg := capability.NewRegistry()
	require.NoError(t, reg.Register(echo("get_weather")))

	err := reg.Register(echo("get_weather"))
	assert.ErrorIs(t, err, capability.ErrDuplicate)
	assert.Equal(t, 1, reg.Len())

	assert.Panics(t, func() { reg.MustRegister(echo("get_weather")) })
}

func TestRegistry_RejectsInvalidEntries(t *testing.T) {
	reg := capability.NewRegistry()

	assert.ErrorIs(t, reg.Register(nil), capability.ErrNilHandler)
	assert.ErrorIs(t, reg.Register(echo("")), capability.ErrNameMissing)
}

func TestRegistry_LookupMissing(t *testing.T) {
	_, err := capability.NewRegistry().Lookup("check_order_status")
	assert.ErrorIs(t, err, capability.ErrNotFound)
	assert.ErrorContains(t, err, "check_order_status")
}

func TestRegistry_ConcurrentLookup(t *testing.T) {
	reg := capability.NewRegistry()
	reg.MustRegister(echo("x"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Lookup("x")
			assert.NoError(t, err)
			_ = reg.List()
		}()
	}
	wg.Wait()
}

func TestDecode(t *testing.T) {
	var in struct {
		Title    string `mapstructure:"title"`
		Duration int    `mapstructure:"duration"`
	}

	require.NoError(t, capability.Decode(map[string]any{"title": "Sync", "duration": 45}, &in))
	assert.Equal(t, "Sync", in.Title)
	assert.Equal(t, 45, in.Duration)
}
