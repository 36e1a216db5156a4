/*
Package reconcile restores migration history from the chain.

Reader scans persisted blocks or follows new ones and decodes Migration
notifications emitted by the contract in successful transactions. Records
come in the log order: by block, by transaction within the block and by
notification within the transaction, see Record.Key.

Helpers accumulate migrated amounts per source account (Totals), compare them
with the contract custody (Audit) and check target addresses
(TargetValidator).
*/
package reconcile
