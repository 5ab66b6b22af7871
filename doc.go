/*
Package lessonkit hosts explorations: small lessons authored as a graph of
states, each showing content and asking the learner for an answer.

An exploration has a title, an init state and named states. A state carries
ordered content blocks, param changes and one interactive widget whose
handlers hold rule specs. The player classifies an answer against the rules
in order, and the first matching rule decides the feedback and the
destination state. The destination END finishes the exploration.

# Packages

  - pkg/domain: explorations, states, change records, pages.
  - pkg/graph: the editable state graph store.
  - pkg/changelist: the change list recorder and save lock.
  - pkg/editor: editor sessions and the commit service.
  - pkg/player: the reader engine and its HTTP client.
  - pkg/widget: widget definitions and customization arg schemas.
  - pkg/adapters: stores (memory, file, redis, loam), HTTP and MCP servers.

# Usage

Play an exploration stored as markdown under ./lessons/intro:

	eng, err := lessonkit.New("./lessons")
	if err != nil {
		log.Fatal(err)
	}

	r := lessonkit.NewRunner()
	r.Input = os.Stdin
	r.Output = os.Stdout
	if err := r.Run(context.Background(), eng, "intro"); err != nil {
		log.Fatal(err)
	}

Or drive the player directly:

	page, err := eng.Start(ctx, "intro")
	// ...
	page, err = eng.Submit(ctx, "intro", page.StateID, domain.Submission{
		Answer:      "42",
		BlockNumber: page.BlockNumber,
		Params:      page.Params,
	})
*/
package lessonkit
