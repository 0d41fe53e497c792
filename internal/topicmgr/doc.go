// Package topicmgr holds the topic definitions the event router routes by.
//
// Definitions come from the topics manifest (JSON or YAML) resolved through a
// source chain, so the same manager works against the embedded defaults, an
// artifacts directory on disk, or a manifest served over HTTP:
//
//	mgr := topicmgr.NewManager(src, logger)
//	if err := mgr.Load(ctx); err != nil {
//		return err
//	}
//	def, ok := mgr.Get("canvas.component.create.requested")
//
// Topics can also be registered directly, which tests use to build small
// manifests without fixtures:
//
//	mgr.MustRegister("a.b", manifest.TopicDef{Routes: []manifest.Route{{PluginID: "P", SequenceID: "S"}}})
//
// A definition is immutable once registered; the manager hands out copies.
package topicmgr
