package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("RENTORA_TEST_MODE") == "" {
			_ = os.Setenv("RENTORA_TEST_MODE", "1")
		}
	})
}
