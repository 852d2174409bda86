package sig

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffect(t *testing.T) {
	t.Run("runs on signal change with cleanup", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)
		log = append(log, fmt.Sprintf("%d", count.Read()))

		NewEffect(func() {
			log = append(log, fmt.Sprintf("changed %d", count.Read()))

			OnCleanup(func() {
				log = append(log, "cleanup")
			})
		})

		count.Write(10)
		log = append(log, fmt.Sprintf("%d", count.Read()))
		count.Write(20)

		assert.Equal(t, []string{
			"0",
			"changed 0",
			"cleanup",
			"changed 10",
			"10",
			"cleanup",
			"changed 20",
		}, log)
	})

	t.Run("writes to another signal", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)
		double := NewSignal(0)

		NewEffect(func() {
			double.Write(count.Read() * 2)
		})

		NewEffect(func() {
			log = append(log, fmt.Sprintf("changed %d", double.Read()))

			OnCleanup(func() {
				log = append(log, "cleanup")
			})
		})

		count.Write(10)

		assert.Equal(t, []string{
			"changed 0",
			"cleanup",
			"changed 20",
		}, log)
	})

	t.Run("nested effects", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)

		NewEffect(func() {
			count.Read()
			log = append(log, "running")

			NewEffect(func() {
				log = append(log, "running nested")

				OnCleanup(func() {
					log = append(log, "cleanup nested")
				})
			})

			OnCleanup(func() {
				log = append(log, "cleanup")
			})
		})

		count.Write(10)

		assert.Equal(t, []string{
			"running",
			"running nested",
			"cleanup nested",
			"cleanup",
			"running",
			"running nested",
		}, log)
	})

	t.Run("diamond dependency", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)
		double := NewComputed(func() int { return count.Read() * 2 })
		quad := NewComputed(func() int { return count.Read() * 4 })

		NewEffect(func() {
			log = append(log, fmt.Sprintf("running %d %d", double.Read(), quad.Read()))

			OnCleanup(func() {
				log = append(log, fmt.Sprintf("cleanup %d %d", double.Read(), quad.Read()))
			})
		})

		count.Write(10)

		assert.Equal(t, []string{
			"running 0 0",
			"cleanup 20 40",
			"running 20 40",
		}, log)
	})

	t.Run("diamond dependency nested", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)
		double := NewComputed(func() int { return count.Read() * 2 })
		quad := NewComputed(func() int { return count.Read() * 4 })

		NewEffect(func() {
			log = append(log, fmt.Sprintf("running %d %d", double.Read(), quad.Read()))

			NewEffect(func() {
				log = append(log, fmt.Sprintf("running nested %d %d", double.Read(), quad.Read()))
				OnCleanup(func() {
					log = append(log, fmt.Sprintf("cleanup nested %d %d", double.Read(), quad.Read()))
				})
			})

			OnCleanup(func() {
				log = append(log, fmt.Sprintf("cleanup %d %d", double.Read(), quad.Read()))
			})
		})

		count.Write(10)

		assert.Equal(t, []string{
			"running 0 0",
			"running nested 0 0",
			"cleanup nested 20 40",
			"cleanup 20 40",
			"running 20 40",
			"running nested 20 40",
		}, log)
	})

	t.Run("deps change between runs", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)

		initialized := false
		NewEffect(func() {
			log = append(log, "running")
			if !initialized {
				count.Read()
			}
			initialized = true
		})

		count.Write(1)
		count.Write(2) // should not trigger since effect no longer depends on count

		assert.Equal(t, []string{
			"running",
			"running",
		}, log)
	})

	t.Run("concurrent read/write", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		log := []int{}

		count := NewSignal(0)

		NewEffect(func() {
			mu.Lock()
			log = append(log, count.Read())
			mu.Unlock()
		})

		wg.Go(func() {
			for count.Read() < 5 {
				count.Write(count.Read() + 1)
			}
		})

		wg.Wait()

		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, log)
	})

	t.Run("write inside an effect runs dependents after it returns", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)
		double := NewSignal(0)

		NewEffect(func() {
			log = append(log, fmt.Sprintf("double %d", double.Read()))
		})

		NewEffect(func() {
			c := count.Read()
			double.Write(c * 2)
			log = append(log, fmt.Sprintf("wrote %d", c*2))
		})

		count.Write(1)

		assert.Equal(t, []string{"double 0", "wrote 0", "wrote 2", "double 2"}, log)
	})

	t.Run("double concurrent read/write", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		log := []int{}

		a := NewSignal(0)
		b := NewSignal(0)

		NewEffect(func() {
			sum := a.Read() + b.Read()

			mu.Lock()
			log = append(log, sum)
			mu.Unlock()
		})

		for _, s := range []*Signal[int]{a, b} {
			wg.Go(func() {
				for range 50 {
					s.Update(func(v int) int { return v + 1 })
				}
			})
		}

		wg.Wait()

		// every write reruns the effect before the next write starts
		expected := make([]int, 101)
		for i := range expected {
			expected[i] = i
		}
		assert.Equal(t, expected, log)
		assert.Equal(t, 50, a.Peek())
		assert.Equal(t, 50, b.Peek())
	})

	t.Run("returns a cleanup", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)

		dispose := NewEffect(func() func() {
			c := count.Read()
			log = append(log, fmt.Sprintf("running %d", c))

			return func() { log = append(log, fmt.Sprintf("cleanup %d", c)) }
		})

		count.Write(1)
		dispose()

		assert.Equal(t, []string{
			"running 0",
			"cleanup 0",
			"running 1",
			"cleanup 1",
		}, log)
	})

	t.Run("dispose stops reruns", func(t *testing.T) {
		log := []int{}

		count := NewSignal(0)
		dispose := NewEffect(func() {
			log = append(log, count.Read())
		})

		count.Write(1)
		dispose()
		dispose()
		count.Write(2)

		assert.Equal(t, []int{0, 1}, log)
	})

	t.Run("disposed while queued", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)

		var disposeSecond func()
		NewEffect(func() {
			if count.Read() > 0 {
				disposeSecond()
			}
		})
		disposeSecond = NewEffect(func() {
			log = append(log, fmt.Sprintf("second %d", count.Read()))
		})

		count.Write(1)

		assert.Equal(t, []string{"second 0"}, log)
	})

	t.Run("render effects run first", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)

		NewEffect(func() {
			log = append(log, fmt.Sprintf("user %d", count.Read()))
		})
		NewRenderEffect(func() {
			log = append(log, fmt.Sprintf("render %d", count.Read()))
		})

		count.Write(1)

		assert.Equal(t, []string{
			"user 0",
			"render 0",
			"render 1",
			"user 1",
		}, log)
	})

	t.Run("skips unchanged computeds", func(t *testing.T) {
		runs := 0

		count := NewSignal(1)
		positive := NewComputed(func() bool { return count.Read() > 0 })

		NewEffect(func() {
			positive.Read()
			runs++
		})

		count.Write(2)
		count.Write(3)
		assert.Equal(t, 1, runs)

		count.Write(-1)
		assert.Equal(t, 2, runs)
	})

	t.Run("panic on first run leaves the effect inert", func(t *testing.T) {
		runs := 0
		count := NewSignal(0)

		assert.PanicsWithValue(t, "boom", func() {
			NewEffect(func() {
				runs++
				count.Read()
				panic("boom")
			})
		})

		count.Write(1)
		assert.Equal(t, 1, runs)
	})

	t.Run("panic on rerun reaches the writer", func(t *testing.T) {
		log := []string{}
		count := NewSignal(0)

		NewEffect(func() {
			if count.Read() == 1 {
				panic("boom")
			}
			log = append(log, fmt.Sprintf("first %d", count.Read()))
		})
		NewEffect(func() {
			log = append(log, fmt.Sprintf("second %d", count.Read()))
		})

		assert.PanicsWithValue(t, "boom", func() { count.Write(1) })

		// still subscribed, the next write retries it
		count.Write(2)

		assert.Equal(t, []string{
			"first 0",
			"second 0",
			"second 1",
			"first 2",
			"second 2",
		}, log)
	})
}
