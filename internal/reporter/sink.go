package reporter

import (
	"context"
	"sync"

	"github.com/robotomize/go-allure/internal/allure"
)

// Collector is a Sink that keeps results in memory.
type Collector struct {
	mu         sync.Mutex
	results    []*allure.TestResult
	containers []*allure.Container
}

func (c *Collector) WriteResult(_ context.Context, result *allure.TestResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)

	return nil
}

func (c *Collector) WriteContainer(_ context.Context, container *allure.Container) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.containers = append(c.containers, container)

	return nil
}

func (c *Collector) Results() []*allure.TestResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*allure.TestResult(nil), c.results...)
}

func (c *Collector) Containers() []*allure.Container {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*allure.Container(nil), c.containers...)
}
