/*
Package settle defines the interfaces shared by the settlement core: storage,
addresses, configuration fractions, genesis options and the context helpers
used to carry block data and a logger.

The accounting logic lives in the extensions under x/. x/ledger keeps the
per-account per-asset balances and enforces the minimum balance policy.
x/collator splits fee revenue into a reward pool and pays it out to block
authors. x/xcm executes cross-domain messages and settles their asset
movement through the ledger.
*/
package settle
