package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNFTKey(t *testing.T) {
	assert.Equal(t, "market:lock:nft:42", NFTKey(42))
	assert.NotEqual(t, NFTKey(1), NFTKey(10))
}
