package main

// Sink blank imports. Each import activates a self-registering notifier.

import (
	_ "github.com/Strob0t/bbwebhook/internal/adapter/desktop"
	_ "github.com/Strob0t/bbwebhook/internal/adapter/discord"
	_ "github.com/Strob0t/bbwebhook/internal/adapter/nats"
	_ "github.com/Strob0t/bbwebhook/internal/adapter/slack"
)
