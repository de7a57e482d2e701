/*
Package collator routes fee revenue into a reward pool and periodically pays
the pool out to block authors.

Fee revenue of a block is handed over as a ledger credit. A configured
fraction of it is deposited into the pool account, the rest goes to the
remainder account or is burned when none is configured.

Every time a block author is noted, the distributable part of the pool (its
free balance above the configured reserve) is compared with the minimum
reward distribution. When it reaches the threshold, half of it is
transferred to the author and the rest stays in the pool for the next
authors. The height of the last authored block is recorded per author.
*/
package collator
