package memory_test

import (
	"testing"

	"github.com/hedgehog/ivdmiddleware/internal/repository/contracttest"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
)

func TestSampleRepository(t *testing.T) {
	contracttest.SampleRepoSuite(t, memory.NewSampleRepository())
}

func TestOrderRepository(t *testing.T) {
	contracttest.OrderRepoSuite(t, memory.NewOrderRepository())
}

func TestResultRepository(t *testing.T) {
	contracttest.ResultRepoSuite(t, memory.NewResultRepository())
}
