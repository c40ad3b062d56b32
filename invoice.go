package lnurl

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

// InvoiceDecoder exposes the one piece of a bolt11 payment request the
// execution engine needs: the embedded amount. The pay flow uses it to
// cross-check the amount a service put in its invoice against the amount
// that was requested.
type InvoiceDecoder interface {
	// DecodeAmount returns the amount embedded in the invoice. ok is
	// false when the invoice carries no amount.
	DecodeAmount(invoice string) (MilliSatoshi, bool, error)
}

// invoiceNetworks maps bolt11 prefixes onto chain parameters. Longer
// prefixes come first so that lnbc does not shadow lnbcrt, nor lntb lntbs.
var invoiceNetworks = []struct {
	prefix string
	params *chaincfg.Params
}{
	{"lnbcrt", &chaincfg.RegressionNetParams},
	{"lntbs", &chaincfg.SigNetParams},
	{"lntb", &chaincfg.TestNet3Params},
	{"lnsb", &chaincfg.SimNetParams},
	{"lnbc", &chaincfg.MainNetParams},
}

// zpay32Decoder is the default InvoiceDecoder, backed by lnd's bolt11
// implementation.
type zpay32Decoder struct{}

func (zpay32Decoder) DecodeAmount(invoice string) (MilliSatoshi, bool,
	error) {

	params, err := invoiceParams(invoice)
	if err != nil {
		return 0, false, err
	}

	inv, err := zpay32.Decode(invoice, params)
	if err != nil {
		return 0, false, fmt.Errorf("unable to decode invoice: %w",
			err)
	}

	if inv.MilliSat == nil {
		return 0, false, nil
	}

	return *inv.MilliSat, true, nil
}

func invoiceParams(invoice string) (*chaincfg.Params, error) {
	hrp := strings.ToLower(invoice)
	for _, network := range invoiceNetworks {
		if strings.HasPrefix(hrp, network.prefix) {
			return network.params, nil
		}
	}

	return nil, fmt.Errorf("unknown invoice network prefix")
}
