package services

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// The app layer talks to storage, brokers and the chain only through ports.
var forbiddenAppImports = []string{
	"github.com/fr0stylo/txcommit/internal/db",
	"github.com/fr0stylo/txcommit/internal/adapters/",
	"github.com/redis/go-redis",
	"github.com/rabbitmq/amqp091-go",
	"github.com/twmb/franz-go",
	"modernc.org/sqlite",
}

func TestAppLayerDependsOnlyOnPorts(t *testing.T) {
	t.Parallel()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("resolve caller path")
	}
	appDir := filepath.Clean(filepath.Join(filepath.Dir(thisFile), ".."))

	err := filepath.WalkDir(appDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, forbidden := range forbiddenAppImports {
			if strings.Contains(string(data), `"`+forbidden) {
				return fmt.Errorf("app layer must not import %s, found in %s", forbidden, path)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scan app layer: %v", err)
	}
}
