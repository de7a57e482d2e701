/*
Package ledger keeps per account, per asset balances.

Every asset has a minimum balance (existential deposit). An ordinary account
whose free balance falls below that minimum, while nothing is reserved, is
reaped: its record is removed and the remaining dust is credited to the sink
account. The sink account, the reward pool and any other configured exempt
account may hold any balance.

Value taken out of accounts to be moved elsewhere (fees) is represented by
a Credit. A credit must be either deposited into an account or burned
before the CreditBook it was issued from is settled.
*/
package ledger
