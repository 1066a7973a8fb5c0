package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LUCENT_TEST_MODE") == "" {
			_ = os.Setenv("LUCENT_TEST_MODE", "1")
		}
	})
}
