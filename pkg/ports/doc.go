/*
Package ports defines the driven ports (interfaces) of the Boto dialogue core.

These interfaces decouple the state machine from the services it talks to,
allowing the same handlers to run against Redis and Postgres in production and
against in-memory adapters in tests.

# Key Interfaces

  - SessionStore: ephemeral per-phone state and interaction correlation (get/set/delete with TTL).
  - DistributedLocker: serializes dispatches for the same phone across replicas.
  - Repository: the durable store for users, preferences, interactions and messages.
  - Classifier: the natural-language validation oracle.
  - Searcher, Sender, MessageCatalog: search service, outbound transport and reply templates.
*/
package ports
