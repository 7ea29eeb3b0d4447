package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// MarketplaceABI is the subset of the marketplace contract the client uses.
const MarketplaceABI = `[
  {"type":"function","name":"mintNFT","stateMutability":"nonpayable",
   "inputs":[{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"imageURI","type":"string"},{"name":"price","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"buyNFT","stateMutability":"payable",
   "inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getAllListedNFTs","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"tokenId","type":"uint256"},{"name":"creator","type":"address"},{"name":"owner","type":"address"},
     {"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"imageURI","type":"string"},
     {"name":"price","type":"uint256"},{"name":"isListed","type":"bool"}]}]},
  {"type":"function","name":"ownerOf","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"event","name":"NFTMinted","anonymous":false,
   "inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"creator","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}]},
  {"type":"event","name":"NFTPurchased","anonymous":false,
   "inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}]}
]`

// listingTuple mirrors the getAllListedNFTs tuple components.
type listingTuple struct {
	TokenId     *big.Int
	Creator     common.Address
	Owner       common.Address
	Name        string
	Description string
	ImageURI    string
	Price       *big.Int
	IsListed    bool
}

func parseMarketplaceABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(MarketplaceABI))
}
