// Package models defines the core domain models for splitroom.
//
// # Models
//
//   - Room: a bill-splitting session with a creator and joined participants
//   - Participant: a person in a room, identified by ID, display name and payee identifier
//   - Receipt / ReceiptItem: the parsed receipt and its line items with their tags
//   - ShareTable: the derived per-participant amounts owed
//   - SettlementRequest: a payment solicitation built from a share
//
// # Design Principles
//
//  1. **Snapshots, not graphs**: entities are plain values. A client never edits a
//     field in place; it replaces the whole snapshot with the room resource's response.
//  2. **IDs, not pointers**: tags and creators reference participants by ID string.
//  3. **Decimal money**: every amount is a decimal.Decimal. Rounding happens only when
//     an amount is formatted for display or placed in a settlement request.
//  4. **Derived shares**: a ShareTable is always recomputed from items and tags and is
//     never stored.
package models
