//go:build !not_ci

package ci

import (
	"flag"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
)

var (
	rpc           string
	prefixStr     string
	finalizes     bool
	addressPrefix uint16
)

func init() {
	flag.StringVar(&rpc, "rpc", "", "RPC endpoint of a running node")
	flag.StringVar(&prefixStr, "prefix", "42", "SS58 address prefix of the chain")
	flag.BoolVar(&finalizes, "finalizes", true, "Whether the chain finalizes blocks")

	logrus.SetLevel(logrus.DebugLevel)
}

func validateCLIInputs(t *testing.T) {
	if rpc == "" {
		t.Fatal("--rpc is required")
	}
	prefix, err := strconv.ParseUint(prefixStr, 10, 16)
	if err != nil {
		t.Fatalf("--prefix must be a number: %v", err)
	}
	addressPrefix = uint16(prefix)
}
