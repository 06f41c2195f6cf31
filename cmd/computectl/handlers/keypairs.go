package handlers

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/imamik/computectl/internal/compute"
)

// ListKeyPairs prints key pairs, optionally only the named ones.
func ListKeyPairs(ctx context.Context, g *Globals, names []string) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.Compute.DescribeKeyPairs(ctx, &compute.DescribeKeyPairsInput{KeyNames: names})
	if err != nil {
		return fmt.Errorf("failed to list key pairs: %w", err)
	}
	return s.render(orEmpty(out.KeyPairs), func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "NAME\tID\tTYPE\tFINGERPRINT\tTAGS")
		for _, k := range out.KeyPairs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.KeyName, dash(k.KeyPairID), dash(k.KeyType), dash(k.Fingerprint), formatTags(k.Tags))
		}
	})
}

// CreateKeyPair creates a key pair. The private key is written to
// privateKeyFile with mode 0600 when given, and printed otherwise.
func CreateKeyPair(ctx context.Context, g *Globals, name, keyType string, tagPairs []string, privateKeyFile string) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	tags, err := parseTags(tagPairs)
	if err != nil {
		return err
	}
	in := &compute.CreateKeyPairInput{KeyName: name, KeyType: keyType, Tags: tags}
	out, err := s.Compute.CreateKeyPair(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create key pair: %w", err)
	}
	s.logCall(in)

	if privateKeyFile != "" {
		if err := os.WriteFile(privateKeyFile, []byte(out.KeyMaterial), 0600); err != nil {
			return fmt.Errorf("failed to write private key: %w", err)
		}
		out.KeyMaterial = ""
		fmt.Fprintf(stderr, "private key written to %s\n", privateKeyFile)
	}

	return s.render(out, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "NAME\tID\tTYPE\tFINGERPRINT")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", out.KeyPair.KeyName, dash(out.KeyPair.KeyPairID), dash(out.KeyPair.KeyType), dash(out.KeyPair.Fingerprint))
		if out.KeyMaterial != "" {
			fmt.Fprintf(w, "\n%s", out.KeyMaterial)
		}
	})
}

// DeleteKeyPair deletes a key pair by name.
func DeleteKeyPair(ctx context.Context, g *Globals, name string) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Compute.DeleteKeyPair(ctx, &compute.DeleteKeyPairInput{KeyName: name}); err != nil {
		return fmt.Errorf("failed to delete key pair %s: %w", name, err)
	}
	fmt.Fprintf(stderr, "key pair %s deleted\n", name)
	return nil
}
