package resources

import (
	"testing"

	"github.com/activecm/rita-threats/config"
	"github.com/sirupsen/logrus/hooks/test"
)

//InitTestingResources creates a testing resource bundle pointed at the
//backend served from baseURL. Log entries are captured by the returned hook
func InitTestingResources(t *testing.T, baseURL string) (*Resources, *test.Hook) {
	t.Helper()

	conf, err := config.LoadTestingConfig(baseURL)
	if err != nil {
		t.Fatal(err)
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(initLogger(&conf.S.Log).Level)

	return newResources(conf, logger), hook
}
