/*
Package migration implements Migration contract which is deployed to the chain
of the source token.

Migration contract is an entry point for the source token holders who move
their balances to another ledger. A holder approves the transfer of the source
token to the contract and invokes migrate with the amount and the address on
the target ledger. The contract converts the amount to the coarser target
units rounding down, takes exactly the converted part into its custody and
produces notification for the off-chain services that credit the target
ledger.

The conversion rate, the source token and the zero amount policy are set on
deployment and can't be changed.

# Contract notifications

Migration notification. This notification is produced on every successful
migration. Amount is expressed in the target units, the contract account
receives amount*rate source token units.

	Migration:
	  - name: from
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: targetAddress
	    type: String
*/
package migration

/*
Contract storage model.

# Summary
Key-value storage format:
  - 'config' -> std.Serialize(Config)
    immutable contract configuration (here Config is a structure defined in current package)
  - 'pull' -> []byte{1}
    exists only during migrate call while source token funds are being pulled
*/
