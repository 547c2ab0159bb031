package ledger

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/*.json
var abiFS embed.FS

// Contract names one of the four marketplace contracts.
type Contract int

const (
	ContractNFT Contract = iota
	ContractToken
	ContractMarketplace
	ContractAuction
)

func (c Contract) String() string {
	switch c {
	case ContractNFT:
		return "nft"
	case ContractToken:
		return "token"
	case ContractMarketplace:
		return "marketplace"
	case ContractAuction:
		return "auction"
	}
	return "unknown"
}

// Contracts holds the hex addresses of the deployed contracts.
type Contracts struct {
	NFT         string
	Token       string
	Marketplace string
	Auction     string
}

type contractSet struct {
	addr [4]common.Address
	abi  [4]abi.ABI
}

func loadContracts(c Contracts) (*contractSet, error) {
	set := &contractSet{}
	entries := []struct {
		contract Contract
		address  string
		file     string
	}{
		{ContractNFT, c.NFT, "abi/nft.json"},
		{ContractToken, c.Token, "abi/token.json"},
		{ContractMarketplace, c.Marketplace, "abi/marketplace.json"},
		{ContractAuction, c.Auction, "abi/auction.json"},
	}

	for _, e := range entries {
		if !common.IsHexAddress(e.address) {
			return nil, fmt.Errorf("ledger: %s contract address %q is not a hex address", e.contract, e.address)
		}
		raw, err := abiFS.ReadFile(e.file)
		if err != nil {
			return nil, err
		}
		parsed, err := abi.JSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("ledger: parse %s abi: %w", e.contract, err)
		}
		set.addr[e.contract] = common.HexToAddress(e.address)
		set.abi[e.contract] = parsed
	}
	return set, nil
}

func (s *contractSet) address(c Contract) common.Address {
	return s.addr[c]
}

func (s *contractSet) pack(c Contract, method string, args ...interface{}) ([]byte, error) {
	data, err := s.abi[c].Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: pack %s.%s: %w", c, method, err)
	}
	return data, nil
}
