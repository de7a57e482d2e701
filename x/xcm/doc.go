/*
Package xcm executes cross domain messages.

A message is an ordered list of instructions received from an origin
location. Before execution the message is validated, weighed and, unless the
origin is trusted, checked to pay for its own execution. Instructions are
then applied one by one against a weight budget. Each instruction works on a
copy of the holding register and in its own savepoint, so a failing
instruction leaves no trace while the effects of the previous ones are
kept.

Execution fees bought with BuyExecution are credited to the ledger sink
account once the execution ends. Assets still held at that point are
recorded in the asset trap under the origin and the message hash.
*/
package xcm
