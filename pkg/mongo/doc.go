// Package mongo connects to MongoDB with the v2 driver, retrying while the
// server comes up, and exposes a health probe.
//
//	cfg := config.MustLoad[mongo.Config]()
//	db, err := mongo.Database(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	store := mongostore.New(db.Collection("notifications"))
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
package mongo
