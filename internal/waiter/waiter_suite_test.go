package waiter_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestWaiter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Waiter Suite")
}
