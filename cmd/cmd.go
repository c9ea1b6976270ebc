// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// commonFlags are shared by every queue-touching command: which session to
// operate on and who is asking.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "session",
			Aliases: []string{"s"},
			Usage:   "Session to operate on",
			Value:   "default",
		},
		&cli.IntFlag{
			Name:  "author",
			Usage: "Numeric identity of the requester",
		},
		&cli.IntFlag{
			Name:  "channel",
			Usage: "Numeric identity of the requesting channel",
		},
	}
}

// addCommand enqueues a single downloadable item
func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a URL or search term to the queue",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "locator",
			},
		},
		Flags: append(commonFlags(),
			&cli.BoolFlag{
				Name:  "head",
				Usage: "Insert at the head of the queue instead of the tail",
			},
		),
		Action: r.Add,
	}
}

// streamCommand enqueues a live or direct stream
func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Add a live or direct stream to the queue",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "locator",
			},
		},
		Flags:  commonFlags(),
		Action: r.Stream,
	}
}

// importCommand enqueues every item of a listing
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import all items of a playlist into the queue",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "locator",
			},
		},
		Flags: append(commonFlags(),
			&cli.BoolFlag{
				Name:  "head",
				Usage: "Insert the imported items at the head of the queue",
			},
			&cli.BoolFlag{
				Name:  "shallow",
				Usage: "Walk the listing without processing, then add items one by one",
			},
		),
		Action: r.Import,
	}
}

// queueCommand groups queue inspection and manipulation
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Inspect and manipulate the queue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List queued entries in play order",
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON instead of the styled listing",
					},
				),
				Action: r.QueueList,
			},
			{
				Name:   "shuffle",
				Usage:  "Shuffle the queue in place",
				Flags:  commonFlags(),
				Action: r.QueueShuffle,
			},
			{
				Name:   "clear",
				Usage:  "Remove every queued entry",
				Flags:  commonFlags(),
				Action: r.QueueClear,
			},
			{
				Name:  "remove",
				Usage: "Remove the entry at a 1-based position",
				Arguments: []cli.Argument{
					&cli.IntArg{
						Name: "position",
					},
				},
				Flags:  commonFlags(),
				Action: r.QueueRemove,
			},
			{
				Name:  "eta",
				Usage: "Estimate the wait until a 1-based position plays",
				Arguments: []cli.Argument{
					&cli.IntArg{
						Name: "position",
					},
				},
				Flags:  commonFlags(),
				Action: r.QueueETA,
			},
			{
				Name:  "count",
				Usage: "Count entries added by an author",
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				),
				Action: r.QueueCount,
			},
		},
	}
}

// nextCommand advances the queue and waits for readiness
func nextCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "next",
		Usage:  "Pop the head entry, wait until it is ready, and print it",
		Flags:  commonFlags(),
		Action: r.Next,
	}
}

// cacheCommand handles the opt-in extraction metadata cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the extraction metadata cache",
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Show cache record count and age",
				Action: r.CacheInfo,
			},
			{
				Name:  "show",
				Usage: "Show cached metadata for a locator",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "locator",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.CacheShow,
			},
			{
				Name:  "prune",
				Usage: "Remove cache records older than a duration",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age threshold for removal (e.g. 720h)",
						Value: 0,
					},
				},
				Action: r.CachePrune,
			},
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, cache directory, and metadata database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}
