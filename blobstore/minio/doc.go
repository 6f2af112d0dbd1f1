// Package minio stores saved indexes in MinIO or any S3-compatible server.
//
// Ceph, SeaweedFS and Garage work as well. Uploads stream through
// PutObject without a known size; loads pin the ETag seen by Open.
//
//	client, err := minio.New(endpoint, &minio.Options{
//	    Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
//	    Secure: true,
//	})
//	if err != nil { ... }
//
//	store := miniostore.NewStore(client, "vectors", "indexes/")
//	_, err = idx.SaveToStore(ctx, store, "catalog.hnsw")
//	loaded, err := hnswlib.LoadFromStore(ctx, store, "catalog.hnsw", 1_000_000, nil)
package minio
