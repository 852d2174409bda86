package sig

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	t.Run("needs an owner to hold a value", func(t *testing.T) {
		theme := NewContext("light")

		theme.Set("dark")
		assert.Equal(t, "light", theme.Value())
	})

	t.Run("nested owner shadows its parent", func(t *testing.T) {
		log := []string{}
		theme := NewContext("light")

		outer := NewOwner()
		defer outer.Dispose()

		outer.Run(func() error {
			theme.Set("dark")

			NewOwner().Run(func() error {
				log = append(log, theme.Value())
				theme.Set("contrast")
				log = append(log, theme.Value())
				return nil
			})

			log = append(log, theme.Value())
			return nil
		})

		log = append(log, theme.Value())

		assert.Equal(t, []string{"dark", "contrast", "dark", "light"}, log)
	})

	t.Run("contexts are independent", func(t *testing.T) {
		theme := NewContext("light")
		lang := NewContext("en")

		owner := NewOwner()
		defer owner.Dispose()

		owner.Run(func() error {
			theme.Set("dark")

			assert.Equal(t, "dark", theme.Value())
			assert.Equal(t, "en", lang.Value())
			return nil
		})
	})

	t.Run("computed reads the owner it was created under", func(t *testing.T) {
		theme := NewContext("light")

		var label *Computed[string]

		owner := NewOwner()
		defer owner.Dispose()

		owner.Run(func() error {
			theme.Set("dark")
			label = NewComputed(func() string { return "theme: " + theme.Value() })
			return nil
		})

		// the first evaluation happens outside the owner
		assert.Equal(t, "theme: dark", label.Read())
	})

	t.Run("effect rerun drops values it set", func(t *testing.T) {
		log := []string{}
		theme := NewContext("light")
		count := NewSignal(0)

		dispose := NewEffect(func() {
			if count.Read() == 0 {
				theme.Set("dark")
			}
			log = append(log, theme.Value())
		})
		defer dispose()

		count.Write(1)

		assert.Equal(t, []string{"dark", "light"}, log)
	})

	t.Run("child effect inherits from its effect", func(t *testing.T) {
		log := []string{}
		theme := NewContext("light")
		count := NewSignal(0)

		dispose := NewEffect(func() {
			theme.Set("dark")

			NewEffect(func() {
				log = append(log, fmt.Sprintf("%s %d", theme.Value(), count.Read()))
			})
		})
		defer dispose()

		count.Write(1)

		assert.Equal(t, []string{"dark 0", "dark 1"}, log)
	})
}
