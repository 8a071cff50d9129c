/*
Package boto is a WhatsApp news assistant built as a deterministic dialogue
state machine.

Each inbound message is handled by a Dispatcher that loads the sender's
conversation position from a TTL session store, runs the handler bound to
that state, fires the triggers of a fixed transition table and writes the new
position back. Subscriptions, queries and feedback are persisted in a
relational repository. Classification of free text (locations, subjects,
schedules) is delegated to an external oracle.

# Usage

New assembles the dialogue with in-memory adapters unless real ones are
injected:

	app, err := boto.New(
		boto.WithSessionStore(redis.NewFromClient(client)),
		boto.WithRepository(postgres.New(db)),
		boto.WithClassifier(oracle),
		boto.WithSearcher(searcher),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := app.Handle(ctx, "5511999990000", "oi")
	// send res.Reply to the user

The boto command wires the same App behind a WhatsApp webhook (boto serve)
and a local terminal simulator (boto chat).
*/
package boto
