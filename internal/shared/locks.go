package shared

// ReconcileLockKey is the redis key guarding the vendor-setting reconcile sweep.
const ReconcileLockKey = "lock:vendor_settings:reconcile"
