package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"
	"time"

	"Web3-Scaffold/internal/app"
	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/internal/web3"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
)

// opener builds what a command needs from the config file.
type opener interface {
	OpenApp(ctx context.Context, path string, chainID int64) (*app.App, error)
	OpenDeployments(ctx context.Context, path string) (*app.DeploymentAdmin, error)
}

type cli struct {
	open       opener
	configPath string
	chainID    int64
	timeout    time.Duration

	wait      bool
	poll      time.Duration
	fromFiles bool

	app   *app.App
	admin *app.DeploymentAdmin
}

// run executes args and releases whatever the command opened, also when the
// command itself failed.
func run(ctx context.Context, open opener, args []string, stdout, stderr io.Writer) (err error) {
	c := &cli{open: open}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer func() {
		if cerr := c.close(); err == nil {
			err = cerr
		}
	}()
	return root.ExecuteContext(ctx)
}

func (c *cli) close() error {
	var errs []error
	if c.app != nil {
		errs = append(errs, c.app.Close())
		c.app = nil
	}
	if c.admin != nil {
		errs = append(errs, c.admin.Close())
		c.admin = nil
	}
	return errors.Join(errs...)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nftctl",
		Short:         "Inspect and drive the ExampleNFT contract",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open.OpenApp(cmd.Context(), c.configPath, c.chainID)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", defaultConfigPath(), "Path to scaffold.json")
	root.PersistentFlags().Int64Var(&c.chainID, "chain-id", 0, "Override web3.target_chain_id")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Per-command RPC timeout")

	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint a token with the configured signer",
		Args:  cobra.NoArgs,
		RunE:  c.mint,
	}
	mint.Flags().BoolVar(&c.wait, "wait", false, "Wait for the transaction receipt")
	mint.Flags().DurationVar(&c.poll, "poll", 2*time.Second, "Receipt polling interval")

	root.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show the bound contract and connection",
			Args:  cobra.NoArgs,
			RunE:  c.info,
		},
		&cobra.Command{
			Use:   "chains",
			Short: "List the configured chain connections",
			Args:  cobra.NoArgs,
			RunE:  c.chains,
		},
		&cobra.Command{
			Use:   "supply",
			Short: "Show total and maximum supply",
			Args:  cobra.NoArgs,
			RunE:  c.supply,
		},
		&cobra.Command{
			Use:   "owner <token-id>",
			Short: "Show the owner and URI of a token",
			Args:  cobra.ExactArgs(1),
			RunE:  c.owner,
		},
		&cobra.Command{
			Use:   "balance <address>",
			Short: "Show how many tokens an address holds",
			Args:  cobra.ExactArgs(1),
			RunE:  c.balance,
		},
		mint,
		c.deploymentsCmd(),
	)
	return root
}

func (c *cli) deploymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "Maintain the deployment record registry",
		// Overrides the root hook: no contract is bound, so an empty
		// registry does not stop sync from filling it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			admin, err := c.open.OpenDeployments(cmd.Context(), c.configPath)
			if err != nil {
				return err
			}
			c.admin = admin
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored deployment records",
		Args:  cobra.NoArgs,
		RunE:  c.deploymentsList,
	}
	list.Flags().BoolVar(&c.fromFiles, "files", false, "List the deploy artifacts instead of the registry")

	cmd.AddCommand(list, &cobra.Command{
		Use:   "sync",
		Short: "Copy deploy artifacts into the MySQL registry",
		Args:  cobra.NoArgs,
		RunE:  c.deploymentsSync,
	})
	return cmd
}

func (c *cli) callOpts(cmd *cobra.Command) (*bind.CallOpts, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	return &bind.CallOpts{Context: ctx}, cancel
}

func (c *cli) info(cmd *cobra.Command, args []string) error {
	bound := c.app.Contracts
	nft := bound.ExampleNFT
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CONTRACT\t%s\n", nft.Binding().Descriptor().Name())
	fmt.Fprintf(w, "ADDRESS\t%s\n", nft.Address().Hex())
	fmt.Fprintf(w, "NETWORK\t%s (%d)\n", bound.Network, bound.TargetChainID)
	fmt.Fprintf(w, "PROVIDER\t%s\n", nft.Reader().Provider().Name())
	fmt.Fprintf(w, "WRITABLE\t%t\n", nft.Writable())
	if in, ok := web3.Inspect(nft.Reader().Provider()); ok {
		fmt.Fprintf(w, "BLOCK\t%s\n", c.head(cmd.Context(), in))
	}
	return w.Flush()
}

func (c *cli) chains(cmd *cobra.Command, args []string) error {
	registry := c.app.Registry
	def, err := registry.Default()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCHAIN_ID\tDEFAULT\tBLOCK")
	for _, name := range registry.Chains() {
		conn, ok := registry.Client(name)
		if !ok {
			continue
		}
		block := "-"
		if in, ok := web3.Inspect(conn); ok {
			block = c.head(cmd.Context(), in)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", name, conn.ChainID(), name == def.Name(), block)
	}
	return w.Flush()
}

// head renders the latest block number, or "unavailable" when the node
// does not answer within the timeout.
func (c *cli) head(ctx context.Context, in web3.Inspector) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	snap, err := in.FetchChainSnapshot(ctx)
	if err != nil {
		return "unavailable"
	}
	n, err := hexutil.DecodeUint64(snap.BlockNumber)
	if err != nil {
		return snap.BlockNumber
	}
	return fmt.Sprint(n)
}

func (c *cli) supply(cmd *cobra.Command, args []string) error {
	opts, cancel := c.callOpts(cmd)
	defer cancel()

	reader := c.app.Contracts.ExampleNFT.Reader()
	total, err := reader.TotalSupply(opts)
	if err != nil {
		return err
	}
	maxSupply, err := reader.MaxSupply(opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s / %s\n", total, maxSupply)
	return nil
}

func (c *cli) owner(cmd *cobra.Command, args []string) error {
	id, ok := new(big.Int).SetString(args[0], 10)
	if !ok || id.Sign() < 0 {
		return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("无效的 token id: %s", args[0]))
	}
	opts, cancel := c.callOpts(cmd)
	defer cancel()

	reader := c.app.Contracts.ExampleNFT.Reader()
	owner, err := reader.OwnerOf(opts, id)
	if err != nil {
		return err
	}
	uri, err := reader.TokenURI(opts, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", id, owner.Hex(), uri)
	return nil
}

func (c *cli) balance(cmd *cobra.Command, args []string) error {
	if !common.IsHexAddress(args[0]) {
		return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("无效的地址: %s", args[0]))
	}
	opts, cancel := c.callOpts(cmd)
	defer cancel()

	balance, err := c.app.Contracts.ExampleNFT.Reader().BalanceOf(opts, common.HexToAddress(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), balance)
	return nil
}

func (c *cli) mint(cmd *cobra.Command, args []string) error {
	writer, err := c.app.Contracts.ExampleNFT.Writer()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	tx, err := writer.Mint(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", tx.Hash().Hex())
	if !c.wait {
		return nil
	}

	in, ok := web3.Inspect(writer.Provider())
	if !ok {
		return xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("连接 %s 不支持查询交易回执", writer.Provider().Name()))
	}
	receipt, err := in.WaitMined(ctx, tx, c.poll)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return xerrors.Wrap(xerrors.CodeTimeout, err, fmt.Sprintf("等待交易 %s 上链超时", tx.Hash().Hex()))
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "block=%s status=%d gas_used=%d\n", receipt.BlockNumber, receipt.Status, receipt.GasUsed)
	if receipt.Status != types.ReceiptStatusSuccessful {
		return xerrors.New(xerrors.CodeContractCallFailure, fmt.Sprintf("交易 %s 执行失败", tx.Hash().Hex()))
	}
	return nil
}

func (c *cli) deploymentsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	records, err := c.admin.List(ctx, c.fromFiles)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tCONTRACT\tADDRESS\tBLOCK")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", rec.Network, rec.Contract, rec.DeployedTo, rec.BlockNumber)
	}
	return w.Flush()
}

func (c *cli) deploymentsSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	records, err := c.admin.Sync(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\t%s\n", rec.Network, rec.Contract, rec.DeployedTo)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "synced %d records\n", len(records))
	return nil
}
