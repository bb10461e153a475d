// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

/*
Package uebundle discovers, classifies, lists, and unpacks Unreal Engine
content bundles: legacy PAK archives and IoStore containers (.utoc with
a sibling .ucas). Container parsing and AES decryption are delegated to
caller-provided capabilities (PakOpener, IoStoreOpener), so the package
carries resolution, filtering, and orchestration while the binary format
readers stay pluggable.

Paired bundle resolution (summary):
  - a pak and a utoc sharing one stem form a single paired bundle;
  - paired bundles list through the utoc container first;
  - the pak fallback fires only when utoc listing succeeds with zero assets;
  - a utoc listing error is reported as-is, never routed to the fallback;
  - result keys keep the .utoc suffix even when assets came from the pak.

# Discovery

Walk a directory tree and classify the containers it holds:

	units, err := uebundle.Discover("Game/Content/Paks")
	if err != nil {
	    return err
	}
	bundles := uebundle.Classify(units)
	for key, bundle := range bundles {
	    _, _ = key, bundle
	}

# Listing

Listing requires reader capabilities. Wire them once into an Extractor:

	ex := uebundle.NewExtractor(uebundle.Readers{
	    Pak:     pakOpener,
	    IoStore: ioStoreOpener,
	})
	assets, err := ex.ListPak("pakchunk0-Windows.pak", uebundle.ListOptions{
	    AESKey: "0x603A...",
	})
	if err != nil {
	    return err
	}
	_ = assets

Resolve a classified bundle with the pak fallback applied automatically:

	res, err := ex.ResolveAssets(bundle, uebundle.ListOptions{})
	if err != nil {
	    return err
	}
	_, _ = res.Assets, res.UsedPakFallback

# Unpacking

Unpack pak contents to a directory. Interior paths are stripped of the
relative mount prefix and sanitized for the local filesystem by default;
disable sanitization explicitly when raw names are required:

	written, err := ex.UnpackPak(ctx, "mod.pak", "out/", uebundle.UnpackOptions{
	    IncludePatterns: []string{"**/*.uasset", "**/*.umap"},
	    Force:           true,
	})
	if err != nil {
	    return err
	}
	_ = written

# Staging

Stage a distribution archive (zip, rar, tar, tar.gz, tar.zst, tar.lz4)
into a scratch directory before scanning it:

	scratch, err := uebundle.Stage(ctx, "mod_pack.zip", uebundle.StageOptions{})
	if err != nil {
	    return err
	}
	defer scratch.Close()

RAR extraction shells out to an external rar or unrar binary; see
FindRarTool for the lookup order.

# Batch processing

Process many containers concurrently and serialize the result map:

	results, err := ex.ProcessFolder(ctx, "Mods/", uebundle.BatchOptions{
	    MaxWorkers: 4,
	    OnWarning: func(path string, err error) {
	        // broken container, recorded and skipped
	    },
	})
	if err != nil {
	    return err
	}
	if err := results.EncodeJSON(os.Stdout, true); err != nil {
	    return err
	}

ProcessArchive stages the archive first and always removes the scratch
directory when done:

	results, err := ex.ProcessArchive(ctx, "mod_pack.rar", uebundle.BatchOptions{})
*/
package uebundle
