package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testKey struct{}

func TestResolveFuncHandlers(t *testing.T) {
	var got []string
	RegisterFunc[string](testKey{}, func(s string) { got = append(got, "a:"+s) })
	RegisterFunc[string](testKey{}, func(s string) { got = append(got, "b:"+s) })
	RegisterFunc[int](testKey{}, func(int) { t.Fatal("wrong type resolved") })

	for _, h := range ResolveFuncHandlers[string](testKey{}) {
		h("x")
	}
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}
